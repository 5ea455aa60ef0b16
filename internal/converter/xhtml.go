package converter

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	xhtmlNamespace = "http://www.w3.org/1999/xhtml"
	svgNamespace   = "http://www.w3.org/2000/svg"
	mathNamespace  = "http://www.w3.org/1998/Math/MathML"
	xlinkNamespace = "http://www.w3.org/1999/xlink"

	xhtmlProlog = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">` + "\n"
)

// voidElements never have content and are written self-closed.
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// RenderXHTML serializes a parsed HTML tree as an XHTML 1.1 document,
// starting with the XML declaration and DOCTYPE. The DOCTYPE of the source
// document is dropped.
func RenderXHTML(root *html.Node) []byte {
	var buf bytes.Buffer
	buf.WriteString(xhtmlProlog)
	writeXHTML(&buf, root)
	buf.WriteByte('\n')
	return buf.Bytes()
}

func writeXHTML(buf *bytes.Buffer, n *html.Node) {
	switch n.Type {
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeXHTML(buf, c)
		}
	case html.DoctypeNode:
	case html.TextNode:
		escapeXML(buf, n.Data, false)
	case html.CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(sanitizeComment(n.Data))
		buf.WriteString("-->")
	case html.ElementNode:
		writeElement(buf, n)
	}
}

func writeElement(buf *bytes.Buffer, n *html.Node) {
	buf.WriteByte('<')
	buf.WriteString(n.Data)

	declared := make(map[string]bool, len(n.Attr))
	for _, a := range n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		if !isAttrName(name) || declared[name] {
			continue
		}
		declared[name] = true
		buf.WriteByte(' ')
		buf.WriteString(name)
		buf.WriteString(`="`)
		escapeXML(buf, a.Val, true)
		buf.WriteByte('"')
	}

	// Elements switching between HTML, SVG and MathML declare their namespace.
	if n.Parent != nil && n.Parent.Type == html.ElementNode && n.Parent.Namespace != n.Namespace {
		if !declared["xmlns"] {
			buf.WriteString(` xmlns="` + namespaceURI(n.Namespace) + `"`)
		}
		if n.Namespace == "svg" && !declared["xmlns:xlink"] {
			buf.WriteString(` xmlns:xlink="` + xlinkNamespace + `"`)
		}
	}

	if n.FirstChild == nil && (voidElements[n.DataAtom] || n.Namespace != "") {
		buf.WriteString(" />")
		return
	}
	buf.WriteByte('>')
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeXHTML(buf, c)
	}
	buf.WriteString("</")
	buf.WriteString(n.Data)
	buf.WriteByte('>')
}

func namespaceURI(ns string) string {
	switch ns {
	case "svg":
		return svgNamespace
	case "math":
		return mathNamespace
	default:
		return xhtmlNamespace
	}
}

// escapeXML writes s with markup characters escaped. Characters that are not
// allowed in XML 1.0 are dropped.
func escapeXML(buf *bytes.Buffer, s string, attr bool) {
	for _, r := range s {
		switch {
		case r == '&':
			buf.WriteString("&amp;")
		case r == '<':
			buf.WriteString("&lt;")
		case r == '>':
			buf.WriteString("&gt;")
		case r == '"' && attr:
			buf.WriteString("&quot;")
		case r == '\n' && attr:
			buf.WriteString("&#10;")
		case r == '\t' && attr:
			buf.WriteString("&#9;")
		case r == '\r' && attr:
			buf.WriteString("&#13;")
		case !isXMLChar(r):
		default:
			buf.WriteRune(r)
		}
	}
}

func isXMLChar(r rune) bool {
	return r == '\t' || r == '\n' || r == '\r' ||
		(r >= 0x20 && r <= 0xD7FF) ||
		(r >= 0xE000 && r <= 0xFFFD) ||
		(r >= 0x10000 && r <= 0x10FFFF)
}

// isAttrName rejects attribute names the HTML parser accepts but XML does
// not, including prefixes that are never declared in the output.
func isAttrName(name string) bool {
	if prefix, _, ok := strings.Cut(name, ":"); ok {
		switch prefix {
		case "xml", "xmlns", "xlink":
		default:
			return false
		}
	}
	if name == "" || strings.HasSuffix(name, ":") {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == ':' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r > 0x7F:
		case i > 0 && (r == '-' || r == '.' || r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}

// sanitizeComment keeps comment text well-formed: XML forbids "--" inside
// a comment and a trailing "-".
func sanitizeComment(s string) string {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	if strings.HasSuffix(s, "-") {
		s += " "
	}
	return s
}
