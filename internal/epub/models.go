package epub

// OPF represents the parsed Open Package Format document
type OPF struct {
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // manifest ids in document order
	Spine         []SpineItem
	Guide         []GuideReference
	NCXPath       string
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Title      string
	Creators   []Creator
	Language   string
	Identifier string
	Date       string
	CoverID    string // manifest item ID of the cover image (meta name="cover")
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name string
	Role string // e.g., "aut" for author, "edt" for editor
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// GuideReference represents a reference in the OPF guide
type GuideReference struct {
	Type  string
	Title string
	Href  string
}

// Role is the reading-order role of a content entry.
type Role int

const (
	// RoleText is a regular chapter listed in the table of contents.
	RoleText Role = iota
	// RoleCover is the cover page. It is placed in the guide, not the table of contents.
	RoleCover
)

func (r Role) String() string {
	if r == RoleCover {
		return "cover"
	}
	return "text"
}

// Content is one XHTML entry of the book.
type Content struct {
	Name  string // path inside the content directory, e.g. "section0.xhtml"
	Data  []byte
	Title string
	Role  Role
}

// Resource is a non-XHTML file referenced by content, such as an image.
type Resource struct {
	Name      string // path inside the content directory, e.g. "image/0/1.png"
	Data      []byte
	MediaType string
}
