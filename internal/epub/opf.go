package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"
)

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
	Guide    *opfGuide   `xml:"guide,omitempty"`
}

// opfMetadata represents the metadata section when reading
type opfMetadata struct {
	Title      []string        `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator    []opfCreator    `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Language   []string        `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifier []opfIdentifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Date       []string        `xml:"http://purl.org/dc/elements/1.1/ date"`
	Meta       []opfMeta       `xml:"meta"`
}

// opfCreator represents a creator element
type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"http://www.idpf.org/2007/opf role,attr"`
}

// opfIdentifier represents an identifier element
type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents a meta element
type opfMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

// opfManifest represents the manifest section
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents an item in the manifest
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

// opfSpine represents the spine section
type opfSpine struct {
	Toc      string       `xml:"toc,attr,omitempty"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

// opfItemRef represents an itemref in the spine
type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr,omitempty"`
}

type opfGuide struct {
	References []opfReference `xml:"reference"`
}

type opfReference struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr,omitempty"`
	Href  string `xml:"href,attr"`
}

// ParseOPF parses an OPF file content and returns the OPF structure
// opfDir is the directory containing the OPF file (e.g., "OEBPS")
func ParseOPF(content []byte, opfDir string) (*OPF, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(content, &pkg); err != nil {
		return nil, fmt.Errorf("failed to parse OPF XML: %w", err)
	}

	opf := &OPF{
		Manifest: make(map[string]ManifestItem),
		Metadata: parseMetadata(&pkg.Metadata, pkg.UniqueID),
	}

	for _, item := range pkg.Manifest.Items {
		manifestItem := ManifestItem{
			ID:         item.ID,
			Href:       joinPath(opfDir, item.Href),
			MediaType:  item.MediaType,
			Properties: strings.Fields(item.Properties),
		}
		opf.Manifest[item.ID] = manifestItem
		opf.ManifestOrder = append(opf.ManifestOrder, item.ID)
	}

	for _, itemRef := range pkg.Spine.ItemRefs {
		opf.Spine = append(opf.Spine, SpineItem{
			IDRef:  itemRef.IDRef,
			Linear: itemRef.Linear != "no",
		})
	}

	if pkg.Guide != nil {
		for _, ref := range pkg.Guide.References {
			opf.Guide = append(opf.Guide, GuideReference{
				Type:  ref.Type,
				Title: ref.Title,
				Href:  joinPath(opfDir, ref.Href),
			})
		}
	}

	// Resolve NCX path from toc attribute
	if pkg.Spine.Toc != "" {
		if ncxItem, ok := opf.Manifest[pkg.Spine.Toc]; ok {
			opf.NCXPath = ncxItem.Href
		}
	}

	return opf, nil
}

// parseMetadata parses the metadata section
func parseMetadata(meta *opfMetadata, uniqueID string) Metadata {
	md := Metadata{Creators: []Creator{}}

	if len(meta.Title) > 0 {
		md.Title = meta.Title[0]
	}
	if len(meta.Language) > 0 {
		md.Language = meta.Language[0]
	}
	if len(meta.Date) > 0 {
		md.Date = meta.Date[0]
	}

	// Identifier (the one marked as unique-identifier, else the first)
	for _, id := range meta.Identifier {
		if id.ID == uniqueID {
			md.Identifier = id.Value
			break
		}
	}
	if md.Identifier == "" && len(meta.Identifier) > 0 {
		md.Identifier = meta.Identifier[0].Value
	}

	for _, creator := range meta.Creator {
		md.Creators = append(md.Creators, Creator{Name: creator.Name, Role: creator.Role})
	}

	for _, m := range meta.Meta {
		if m.Name == "cover" && m.Content != "" {
			md.CoverID = m.Content
			break
		}
	}

	return md
}

// joinPath joins OPF directory with a relative path
func joinPath(base, rel string) string {
	if base == "" || base == "." {
		return rel
	}
	return path.Join(base, rel)
}

// Elements written with a literal "dc:" prefix; the namespace is declared on <metadata>.
type opfMetadataOut struct {
	XmlnsDC    string           `xml:"xmlns:dc,attr"`
	XmlnsOPF   string           `xml:"xmlns:opf,attr"`
	Title      string           `xml:"dc:title"`
	Creators   []opfCreatorOut  `xml:"dc:creator"`
	Language   string           `xml:"dc:language"`
	Identifier opfIdentifierOut `xml:"dc:identifier"`
	Date       string           `xml:"dc:date,omitempty"`
	Meta       []opfMeta        `xml:"meta"`
}

type opfCreatorOut struct {
	Role string `xml:"opf:role,attr,omitempty"`
	Name string `xml:",chardata"`
}

type opfIdentifierOut struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type opfPackageOut struct {
	XMLName  xml.Name       `xml:"package"`
	Xmlns    string         `xml:"xmlns,attr"`
	Version  string         `xml:"version,attr"`
	UniqueID string         `xml:"unique-identifier,attr"`
	Metadata opfMetadataOut `xml:"metadata"`
	Manifest opfManifest    `xml:"manifest"`
	Spine    opfSpine       `xml:"spine"`
	Guide    *opfGuide      `xml:"guide,omitempty"`
}

// marshalXML renders v with an XML declaration and an optional DOCTYPE line.
func marshalXML(v any, doctype string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if doctype != "" {
		buf.WriteString(doctype)
		buf.WriteByte('\n')
	}
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
