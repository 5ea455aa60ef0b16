package converter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/atom"
)

// tagConversions maps HTML5 sectioning tags to XHTML 1.1 equivalents.
var tagConversions = map[string]string{
	"article":    "div",
	"section":    "div",
	"aside":      "div",
	"nav":        "div",
	"header":     "div",
	"footer":     "div",
	"main":       "div",
	"figure":     "div",
	"figcaption": "p",
}

// forbiddenAttrs lists HTML5-only attributes removed from all elements.
var forbiddenAttrs = map[string]bool{
	"contenteditable": true,
	"draggable":       true,
	"hidden":          true,
	"spellcheck":      true,
	"translate":       true,
}

// NormalizeXHTML rewrites HTML5-only markup so the document validates as
// XHTML 1.1. Converted elements keep their original tag name as a class.
// Charset declarations are removed since the output is always UTF-8.
func NormalizeXHTML(doc *goquery.Document) {
	for origTag, newTag := range tagConversions {
		doc.Find(origTag).Each(func(i int, s *goquery.Selection) {
			existingClass, _ := s.Attr("class")
			if existingClass != "" {
				s.SetAttr("class", existingClass+" "+origTag)
			} else {
				s.SetAttr("class", origTag)
			}
			node := s.Get(0)
			node.Data = newTag
			node.DataAtom = atom.Lookup([]byte(newTag))
		})
	}

	doc.Find("meta[charset]").Remove()
	doc.Find("meta[http-equiv]").Each(func(i int, s *goquery.Selection) {
		if v, _ := s.Attr("http-equiv"); strings.EqualFold(v, "content-type") {
			s.Remove()
		}
	})

	// Remove forbidden attributes and data-* attributes from all elements
	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		var toRemove []string
		for _, attr := range node.Attr {
			if forbiddenAttrs[attr.Key] || strings.HasPrefix(attr.Key, "data-") {
				toRemove = append(toRemove, attr.Key)
			}
		}
		for _, key := range toRemove {
			s.RemoveAttr(key)
		}
	})
}
