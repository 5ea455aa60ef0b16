package epub

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

const (
	ncxNamespace = "http://www.daisy.org/z3986/2005/ncx/"
	ncxDoctype   = `<!DOCTYPE ncx PUBLIC "-//NISO//DTD ncx 2005-1//EN" "http://www.daisy.org/z3986/2005/ncx-2005-1.dtd">`
)

// NCX represents the parsed navigation control document.
type NCX struct {
	UID       string
	Depth     int
	DocTitle  string
	NavPoints []NavPoint
}

// NavPoint represents a single navigation point in the table of contents.
type NavPoint struct {
	ID          string
	PlayOrder   int
	Label       string
	ContentPath string // fragment-free path within the EPUB
	Fragment    string // fragment identifier (without #)
	Children    []NavPoint
}

type ncxDocument struct {
	XMLName  xml.Name  `xml:"ncx"`
	Xmlns    string    `xml:"xmlns,attr,omitempty"`
	Version  string    `xml:"version,attr"`
	Head     ncxHead   `xml:"head"`
	DocTitle ncxText   `xml:"docTitle"`
	NavMap   ncxNavMap `xml:"navMap"`
}

type ncxNavMap struct {
	Points []ncxNavPnt `xml:"navPoint"`
}

type ncxHead struct {
	Meta []opfMeta `xml:"meta"`
}

type ncxText struct {
	Text string `xml:"text"`
}

type ncxNavPnt struct {
	ID        string      `xml:"id,attr"`
	PlayOrder int         `xml:"playOrder,attr"`
	Label     ncxText     `xml:"navLabel"`
	Content   ncxContent  `xml:"content"`
	Children  []ncxNavPnt `xml:"navPoint"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// ParseNCX parses an NCX document. ncxDir is the directory holding the NCX
// file and is used to resolve content paths.
func ParseNCX(content []byte, ncxDir string) (*NCX, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX XML: %w", err)
	}

	ncx := &NCX{DocTitle: strings.TrimSpace(doc.DocTitle.Text)}
	for _, m := range doc.Head.Meta {
		switch m.Name {
		case "dtb:uid":
			ncx.UID = m.Content
		case "dtb:depth":
			if depth, err := strconv.Atoi(m.Content); err == nil {
				ncx.Depth = depth
			}
		}
	}
	ncx.NavPoints = convertNavPoints(doc.NavMap.Points, ncxDir)
	return ncx, nil
}

func convertNavPoints(points []ncxNavPnt, ncxDir string) []NavPoint {
	if len(points) == 0 {
		return nil
	}
	result := make([]NavPoint, 0, len(points))
	for _, p := range points {
		contentPath, fragment := splitFragment(p.Content.Src)
		result = append(result, NavPoint{
			ID:          p.ID,
			PlayOrder:   p.PlayOrder,
			Label:       strings.TrimSpace(p.Label.Text),
			ContentPath: joinPath(ncxDir, contentPath),
			Fragment:    fragment,
			Children:    convertNavPoints(p.Children, ncxDir),
		})
	}
	return result
}

// buildNCX renders a flat NCX with one navPoint per text entry.
func buildNCX(uid, title string, contents []Content) ([]byte, error) {
	doc := ncxDocument{
		Xmlns:   ncxNamespace,
		Version: "2005-1",
		Head: ncxHead{Meta: []opfMeta{
			{Name: "dtb:uid", Content: uid},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		}},
		DocTitle: ncxText{Text: title},
	}

	order := 0
	for _, c := range contents {
		if c.Role != RoleText {
			continue
		}
		order++
		doc.NavMap.Points = append(doc.NavMap.Points, ncxNavPnt{
			ID:        fmt.Sprintf("navPoint-%d", order),
			PlayOrder: order,
			Label:     ncxText{Text: navLabel(c)},
			Content:   ncxContent{Src: c.Name},
		})
	}

	return marshalXML(doc, ncxDoctype)
}

// navLabel falls back to the entry name when the document had no title;
// readers render an empty label as a blank TOC line.
func navLabel(c Content) string {
	if label := strings.TrimSpace(c.Title); label != "" {
		return label
	}
	return strings.TrimSuffix(c.Name, ".xhtml")
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (path, fragment string) {
	path, fragment, _ = strings.Cut(src, "#")
	return path, fragment
}
