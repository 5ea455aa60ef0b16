package epub

import (
	"strings"
	"testing"
)

func TestSplitFragment(t *testing.T) {
	tests := []struct {
		src          string
		wantPath     string
		wantFragment string
	}{
		{"chapter1.xhtml", "chapter1.xhtml", ""},
		{"chapter1.xhtml#sec1", "chapter1.xhtml", "sec1"},
		{"#top", "", "top"},
		{"a.xhtml#b#c", "a.xhtml", "b#c"},
	}
	for _, tt := range tests {
		p, f := splitFragment(tt.src)
		if p != tt.wantPath || f != tt.wantFragment {
			t.Errorf("splitFragment(%q) = (%q, %q), want (%q, %q)", tt.src, p, f, tt.wantPath, tt.wantFragment)
		}
	}
}

func TestParseNCX_NestedNavPoints(t *testing.T) {
	content := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
    <meta name="dtb:uid" content="urn:uuid:xyz"/>
    <meta name="dtb:depth" content="2"/>
  </head>
  <docTitle><text> Book </text></docTitle>
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Part 1</text></navLabel>
      <content src="text/part1.xhtml"/>
      <navPoint id="np2" playOrder="2">
        <navLabel><text>Chapter 1</text></navLabel>
        <content src="text/part1.xhtml#ch1"/>
      </navPoint>
    </navPoint>
  </navMap>
</ncx>`)

	ncx, err := ParseNCX(content, "OEBPS")
	if err != nil {
		t.Fatalf("ParseNCX() error = %v", err)
	}
	if ncx.UID != "urn:uuid:xyz" || ncx.Depth != 2 || ncx.DocTitle != "Book" {
		t.Errorf("head = (%q, %d, %q), want (urn:uuid:xyz, 2, Book)", ncx.UID, ncx.Depth, ncx.DocTitle)
	}
	if len(ncx.NavPoints) != 1 {
		t.Fatalf("len(NavPoints) = %d, want 1", len(ncx.NavPoints))
	}
	part := ncx.NavPoints[0]
	if part.ContentPath != "OEBPS/text/part1.xhtml" {
		t.Errorf("ContentPath = %q, want %q", part.ContentPath, "OEBPS/text/part1.xhtml")
	}
	if len(part.Children) != 1 {
		t.Fatalf("len(Children) = %d, want 1", len(part.Children))
	}
	ch := part.Children[0]
	if ch.Label != "Chapter 1" || ch.Fragment != "ch1" || ch.PlayOrder != 2 {
		t.Errorf("child = %+v, want Chapter 1 #ch1 playOrder 2", ch)
	}
}

func TestBuildNCX(t *testing.T) {
	contents := []Content{
		{Name: "cover.xhtml", Role: RoleCover},
		{Name: "section0.xhtml", Title: "First"},
		{Name: "section1.xhtml"},
	}

	data, err := buildNCX("urn:uuid:1", "My Book", contents)
	if err != nil {
		t.Fatalf("buildNCX() error = %v", err)
	}
	if !strings.Contains(string(data), ncxDoctype) {
		t.Error("NCX does not contain the DOCTYPE")
	}

	ncx, err := ParseNCX(data, "")
	if err != nil {
		t.Fatalf("ParseNCX() error = %v", err)
	}
	if ncx.UID != "urn:uuid:1" || ncx.DocTitle != "My Book" {
		t.Errorf("head = (%q, %q), want (urn:uuid:1, My Book)", ncx.UID, ncx.DocTitle)
	}
	if len(ncx.NavPoints) != 2 {
		t.Fatalf("len(NavPoints) = %d, want 2", len(ncx.NavPoints))
	}
	want := []NavPoint{
		{ID: "navPoint-1", PlayOrder: 1, Label: "First", ContentPath: "section0.xhtml"},
		{ID: "navPoint-2", PlayOrder: 2, Label: "section1", ContentPath: "section1.xhtml"},
	}
	for i, w := range want {
		got := ncx.NavPoints[i]
		if got.ID != w.ID || got.PlayOrder != w.PlayOrder || got.Label != w.Label || got.ContentPath != w.ContentPath {
			t.Errorf("NavPoints[%d] = %+v, want %+v", i, got, w)
		}
	}
}

func TestBuildNCX_EmptyNavMap(t *testing.T) {
	data, err := buildNCX("id", "T", []Content{{Name: "cover.xhtml", Role: RoleCover}})
	if err != nil {
		t.Fatalf("buildNCX() error = %v", err)
	}
	if !strings.Contains(string(data), "<navMap></navMap>") {
		t.Errorf("NCX lacks an empty navMap:\n%s", data)
	}
}
