// Test program for the document rewriting step
//
// Usage:
//
//	go run ./cmd/test/html_rewriter/main.go <html-file> [image-dir]
//
// This program parses an HTML file, rewrites its <img> elements to
// local paths without downloading anything and prints the image
// table followed by the serialized XHTML.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/yuanying/html2epub/internal/converter"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/test/html_rewriter/main.go <html-file> [image-dir]")
		os.Exit(1)
	}

	docPath := os.Args[1]
	dir := converter.ImageDir(0)
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	data, err := os.ReadFile(docPath)
	if err != nil {
		log.Fatalf("Failed to read document: %v", err)
	}

	doc, err := converter.ParseDocument(data, docPath)
	if err != nil {
		log.Fatalf("Failed to parse document: %v", err)
	}
	fmt.Printf("Title: %q\n", doc.Title)

	refs := doc.RewriteImages(dir)
	fmt.Printf("Images (%d):\n", len(refs))
	for _, ref := range refs {
		fmt.Printf("  [%d] %s\n      -> %s\n", ref.Index, ref.URL, ref.Path)
	}

	converter.NormalizeXHTML(doc.Document)
	fmt.Println()
	fmt.Println(string(doc.XHTML()))
}
