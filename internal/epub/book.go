package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors returned while assembling a book.
var (
	ErrEmptyName     = errors.New("epub: entry name is empty")
	ErrInvalidName   = errors.New("epub: entry name escapes the content directory")
	ErrDuplicateName = errors.New("epub: duplicate entry name")
	ErrNoContent     = errors.New("epub: book has no content")
)

const coverPageTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>%s</title></head>
<body>%s</body>
</html>
`

// Book accumulates metadata, a cover and content entries in reading order
// and writes them as an EPUB 2 archive. A Book is not safe for concurrent use.
type Book struct {
	meta      Metadata
	cover     *Resource
	contents  []Content
	resources []Resource
	names     map[string]struct{}
	now       func() time.Time
}

// NewBook creates an empty book. Missing language defaults to "en" and a
// missing identifier to a random urn:uuid.
func NewBook(meta Metadata) *Book {
	if meta.Language == "" {
		meta.Language = "en"
	}
	if meta.Identifier == "" {
		meta.Identifier = "urn:uuid:" + uuid.NewString()
	}
	return &Book{
		meta:  meta,
		names: make(map[string]struct{}),
		now:   time.Now,
	}
}

// Metadata returns the book metadata.
func (b *Book) Metadata() Metadata {
	return b.meta
}

// SetCoverImage registers the cover image under name.
func (b *Book) SetCoverImage(name string, data []byte, mediaType string) error {
	if b.cover != nil {
		return fmt.Errorf("%w: cover image already set", ErrDuplicateName)
	}
	if err := b.reserve(name); err != nil {
		return err
	}
	b.cover = &Resource{Name: name, Data: data, MediaType: mediaType}
	return nil
}

// AddContent appends an XHTML entry to the reading order. A cover entry with
// no data gets a generated page showing the cover image.
func (b *Book) AddContent(c Content) error {
	if err := b.reserve(c.Name); err != nil {
		return err
	}
	b.contents = append(b.contents, c)
	return nil
}

// AddResource registers a file referenced by content.
func (b *Book) AddResource(r Resource) error {
	if err := b.reserve(r.Name); err != nil {
		return err
	}
	b.resources = append(b.resources, r)
	return nil
}

// Contents returns the content entries in reading order.
func (b *Book) Contents() []Content {
	return append([]Content(nil), b.contents...)
}

// Resources returns the registered resources, excluding the cover image.
func (b *Book) Resources() []Resource {
	return append([]Resource(nil), b.resources...)
}

func (b *Book) reserve(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	clean := path.Clean(name)
	if clean != name || strings.HasPrefix(clean, "../") || clean == ".." || path.IsAbs(clean) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	switch name {
	case packageFileName, ncxFileName:
		return fmt.Errorf("%w: %q is reserved", ErrDuplicateName, name)
	}
	if _, ok := b.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	b.names[name] = struct{}{}
	return nil
}

// WriteFile writes the archive to path, replacing any existing file.
func (b *Book) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
	}()

	if _, err := b.WriteTo(f); err != nil {
		return err
	}
	return nil
}

// WriteTo writes the complete archive to out.
func (b *Book) WriteTo(out io.Writer) (int64, error) {
	if len(b.contents) == 0 {
		return 0, ErrNoContent
	}

	cw := &countingWriter{w: out}
	zw := zip.NewWriter(cw)

	// The mimetype entry must come first and be stored uncompressed.
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return cw.n, fmt.Errorf("failed to write mimetype: %w", err)
	}
	if _, err := io.WriteString(mw, mimetype); err != nil {
		return cw.n, fmt.Errorf("failed to write mimetype: %w", err)
	}

	containerData, err := buildContainer(path.Join(contentDir, packageFileName))
	if err != nil {
		return cw.n, err
	}
	opfData, err := b.buildOPF()
	if err != nil {
		return cw.n, fmt.Errorf("failed to render OPF: %w", err)
	}
	ncxData, err := buildNCX(b.meta.Identifier, b.meta.Title, b.contents)
	if err != nil {
		return cw.n, fmt.Errorf("failed to render NCX: %w", err)
	}

	entries := []zipEntry{
		{containerPath, containerData},
		{path.Join(contentDir, packageFileName), opfData},
		{path.Join(contentDir, ncxFileName), ncxData},
	}
	if b.cover != nil {
		entries = append(entries, zipEntry{path.Join(contentDir, b.cover.Name), b.cover.Data})
	}
	for _, c := range b.contents {
		entries = append(entries, zipEntry{path.Join(contentDir, c.Name), b.contentData(c)})
	}
	for _, r := range b.resources {
		entries = append(entries, zipEntry{path.Join(contentDir, r.Name), r.Data})
	}

	modified := b.now()
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return cw.n, fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return cw.n, fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return cw.n, nil
}

func (b *Book) contentData(c Content) []byte {
	if c.Role != RoleCover || len(c.Data) > 0 {
		return c.Data
	}
	title := c.Title
	if title == "" {
		title = "Cover"
	}
	body := ""
	if b.cover != nil {
		body = fmt.Sprintf(`<div><img src="%s" alt="%s" /></div>`,
			html.EscapeString(relativeHref(c.Name, b.cover.Name)), html.EscapeString(b.meta.Title))
	}
	return []byte(fmt.Sprintf(coverPageTemplate, html.EscapeString(title), body))
}

// buildOPF renders the package document.
func (b *Book) buildOPF() ([]byte, error) {
	pkg := opfPackageOut{
		Xmlns:    opfNamespace,
		Version:  "2.0",
		UniqueID: "BookId",
		Metadata: opfMetadataOut{
			XmlnsDC:    dcNamespace,
			XmlnsOPF:   opfNamespace,
			Title:      b.meta.Title,
			Language:   b.meta.Language,
			Identifier: opfIdentifierOut{ID: "BookId", Value: b.meta.Identifier},
			Date:       b.meta.Date,
		},
		Spine: opfSpine{Toc: "ncx"},
	}
	for _, c := range b.meta.Creators {
		pkg.Metadata.Creators = append(pkg.Metadata.Creators, opfCreatorOut{Name: c.Name, Role: c.Role})
	}
	if pkg.Metadata.Date == "" {
		pkg.Metadata.Date = b.now().UTC().Format("2006-01-02")
	}

	items := []opfManifestItem{{ID: "ncx", Href: ncxFileName, MediaType: ncxMediaType}}
	if b.cover != nil {
		items = append(items, opfManifestItem{ID: "cover-image", Href: b.cover.Name, MediaType: b.cover.MediaType})
		pkg.Metadata.Meta = append(pkg.Metadata.Meta, opfMeta{Name: "cover", Content: "cover-image"})
	}

	var guide opfGuide
	textReferenced := false
	for i, c := range b.contents {
		id := fmt.Sprintf("content%d", i)
		if c.Role == RoleCover {
			id = "cover"
			guide.References = append(guide.References, opfReference{Type: "cover", Title: "Cover", Href: c.Name})
		} else if !textReferenced {
			guide.References = append(guide.References, opfReference{Type: "text", Title: navLabel(c), Href: c.Name})
			textReferenced = true
		}
		items = append(items, opfManifestItem{ID: id, Href: c.Name, MediaType: xhtmlMediaType})
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: id})
	}
	for i, r := range b.resources {
		items = append(items, opfManifestItem{ID: fmt.Sprintf("resource%d", i), Href: r.Name, MediaType: r.MediaType})
	}
	pkg.Manifest.Items = items
	if len(guide.References) > 0 {
		pkg.Guide = &guide
	}

	return marshalXML(pkg, "")
}

// relativeHref returns target relative to the directory of from.
func relativeHref(from, target string) string {
	dir := path.Dir(from)
	if dir == "." {
		return target
	}
	ups := strings.Repeat("../", strings.Count(dir, "/")+1)
	return ups + target
}

type zipEntry struct {
	name string
	data []byte
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
