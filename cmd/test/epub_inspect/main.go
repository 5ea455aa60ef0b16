// Test program for inspecting a generated EPUB
//
// Usage:
//
//	go run ./cmd/test/epub_inspect/main.go <epub-file> (<content-filename> ...)
//
// This program:
// - Opens the EPUB and validates the mimetype entry
// - Lists every archive entry in order
// - Prints the package metadata, manifest, spine and guide
// - Prints the NCX table of contents and the detected cover
// - Dumps the named entries
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/yuanying/html2epub/internal/epub"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/test/epub_inspect/main.go <epub-file> (<content-filename> ...)")
		os.Exit(1)
	}

	epubPath := os.Args[1]
	filePaths := os.Args[2:]

	fmt.Printf("Opening EPUB file: %s\n", epubPath)
	reader, err := epub.Open(epubPath)
	if err != nil {
		log.Fatalf("Failed to open EPUB: %v", err)
	}
	defer reader.Close()

	fmt.Println("✓ mimetype is valid")
	fmt.Printf("OPF path: %s\n", reader.OPFPath())

	fmt.Println("\n=== Entries ===")
	for i, name := range reader.Names() {
		fmt.Printf("%3d  %s\n", i, name)
	}

	opf, ncx, err := reader.Package()
	if err != nil {
		log.Fatalf("Failed to parse package: %v", err)
	}

	fmt.Println("\n=== Metadata ===")
	fmt.Printf("Title:      %s\n", opf.Metadata.Title)
	for _, c := range opf.Metadata.Creators {
		fmt.Printf("Creator:    %s (%s)\n", c.Name, c.Role)
	}
	fmt.Printf("Language:   %s\n", opf.Metadata.Language)
	fmt.Printf("Identifier: %s\n", opf.Metadata.Identifier)
	fmt.Printf("Date:       %s\n", opf.Metadata.Date)

	fmt.Printf("\n=== Manifest (%d) ===\n", len(opf.ManifestOrder))
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		fmt.Printf("%-12s %-28s %s\n", id, item.MediaType, item.Href)
	}

	fmt.Printf("\n=== Spine (%d) ===\n", len(opf.Spine))
	for i, s := range opf.Spine {
		fmt.Printf("%3d  %s (linear=%v)\n", i, s.IDRef, s.Linear)
	}

	if len(opf.Guide) > 0 {
		fmt.Println("\n=== Guide ===")
		for _, g := range opf.Guide {
			fmt.Printf("%-8s %-10s %s\n", g.Type, g.Title, g.Href)
		}
	}

	if ncx != nil {
		fmt.Printf("\n=== NCX: %s ===\n", ncx.DocTitle)
		printNavPoints(ncx.NavPoints, 0)
	}

	if cover := opf.DetectCover(); cover == nil {
		fmt.Println("\nCover: not found")
	} else {
		fmt.Printf("\nCover: %s (%s, via %s)\n", cover.Href, cover.MediaType, cover.DetectionMethod)
	}

	for _, name := range filePaths {
		data, err := reader.ReadFile(name)
		if err != nil {
			log.Printf("Failed to read %s: %v", name, err)
			continue
		}
		fmt.Printf("\n=== %s (%d bytes) ===\n%s\n", name, len(data), data)
	}
}

func printNavPoints(points []epub.NavPoint, depth int) {
	for _, p := range points {
		fmt.Printf("%s%d. %s -> %s\n", strings.Repeat("  ", depth), p.PlayOrder, p.Label, p.ContentPath)
		printNavPoints(p.Children, depth+1)
	}
}
