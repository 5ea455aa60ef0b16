package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yuanying/html2epub/internal/download"
	"github.com/yuanying/html2epub/internal/epub"
)

// ErrMissingImage is returned when a rewritten image could not be read back
// and the policy is PolicyAbort.
var ErrMissingImage = errors.New("image missing after download")

// MissingImagePolicy decides what happens to an <img> whose file is missing,
// unreadable or empty after the download step.
type MissingImagePolicy string

const (
	// PolicyAbort fails the document and with it the whole conversion.
	PolicyAbort MissingImagePolicy = "abort"
	// PolicyDrop removes the <img> element and continues.
	PolicyDrop MissingImagePolicy = "drop"
)

// ParseMissingImagePolicy accepts "abort", "drop" or "" (abort).
func ParseMissingImagePolicy(s string) (MissingImagePolicy, error) {
	switch MissingImagePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyDrop:
		return PolicyDrop, nil
	}
	return "", fmt.Errorf("unknown missing image policy %q", s)
}

// BatchDownloader runs a list of download tasks to completion.
type BatchDownloader interface {
	DownloadAll(ctx context.Context, tasks []download.Task) []download.Result
}

// ImageRef is one rewritten <img> element.
type ImageRef struct {
	Source string // original src attribute
	URL    string // absolute URL the image is fetched from
	Index  int    // position among all <img> elements of the document
	Path   string // rewritten src, relative to the content directory
	Ext    string // extension taken from the source path, with the dot; may be empty

	node *html.Node
}

// ParsedDocument is an HTML document loaded into a mutable tree.
type ParsedDocument struct {
	Path     string
	Title    string
	Document *goquery.Document
}

// ParseDocument decodes data to UTF-8 and parses it. docPath is used to
// resolve relative image references.
func ParseDocument(data []byte, docPath string) (*ParsedDocument, error) {
	enc, name, _ := charset.DetermineEncoding(data, "")
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s as %s: %w", docPath, name, err)
	}
	decoded = bytes.TrimPrefix(decoded, []byte("\ufeff"))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", docPath, err)
	}

	title := doc.Find("title").First().Text()
	return &ParsedDocument{
		Path:     docPath,
		Title:    norm.NFC.String(strings.TrimSpace(title)),
		Document: doc,
	}, nil
}

// RewriteImages points every <img> at dir/{index}{ext} and returns the
// rewritten references in document order. Elements without a src, with a
// src naming no path ("#", "?x") and inline data: images keep their index
// but are left untouched.
func (d *ParsedDocument) RewriteImages(dir string) []ImageRef {
	var refs []ImageRef
	d.Document.Find("img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		src = strings.TrimSpace(src)
		if !ok || src == "" || strings.HasPrefix(strings.ToLower(src), "data:") || isPlaceholder(src) {
			return
		}

		ext := sourceExt(src)
		dest := path.Join(dir, strconv.Itoa(i)+ext)
		s.SetAttr("src", dest)
		refs = append(refs, ImageRef{
			Source: src,
			URL:    resolveSource(src, filepath.Dir(d.Path)),
			Index:  i,
			Path:   dest,
			Ext:    ext,
			node:   s.Get(0),
		})
	})
	return refs
}

// XHTML serializes the document as XHTML 1.1.
func (d *ParsedDocument) XHTML() []byte {
	d.Document.Find("html").First().SetAttr("xmlns", xhtmlNamespace)
	return RenderXHTML(d.Document.Get(0))
}

// isPlaceholder reports whether src is a scheme-less reference without a
// path, which would otherwise resolve to the document's own directory.
func isPlaceholder(src string) bool {
	u, err := url.Parse(src)
	return err == nil && u.Scheme == "" && u.Host == "" && u.Opaque == "" && u.Path == ""
}

// sourceExt returns the extension of the path component of src. Extensions
// holding anything but ASCII letters and digits are dropped.
func sourceExt(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	if len(ext) < 2 {
		return ""
	}
	for _, c := range ext[1:] {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9') {
			return ""
		}
	}
	return ext
}

// resolveSource turns src into a URL the fetcher understands. Paths without
// a scheme are local files relative to the document directory.
func resolveSource(src, docDir string) string {
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	if u.Scheme != "" {
		return src
	}

	p := filepath.FromSlash(u.Path)
	if !filepath.IsAbs(p) {
		p = filepath.Join(docDir, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String()
}

// Section is a rewritten document and the images it references.
type Section struct {
	Content   epub.Content
	Resources []epub.Resource
	Images    []ImageRef
	Dropped   int
}

// RewriterOptions configures a Rewriter.
type RewriterOptions struct {
	// WorkDir holds the downloaded images. Default: "."
	WorkDir string

	// MissingImages selects the handling of images that did not download.
	// Default: PolicyAbort
	MissingImages MissingImagePolicy

	// Normalize rewrites HTML5-only markup for XHTML 1.1.
	Normalize bool

	Logger *slog.Logger
}

// Rewriter turns one HTML document into an XHTML content entry with its
// images downloaded next to it.
type Rewriter struct {
	downloader BatchDownloader
	opts       RewriterOptions
	logger     *slog.Logger
}

// NewRewriter creates a Rewriter that downloads images with downloader.
func NewRewriter(downloader BatchDownloader, opts RewriterOptions) *Rewriter {
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	if opts.MissingImages == "" {
		opts.MissingImages = PolicyAbort
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Rewriter{downloader: downloader, opts: opts, logger: logger}
}

// ImageDir is the directory, relative to the content root, holding the
// images of the document at docIndex.
func ImageDir(docIndex int) string {
	return path.Join("image", strconv.Itoa(docIndex))
}

// SectionName is the entry name of the document at docIndex.
func SectionName(docIndex int) string {
	return fmt.Sprintf("section%d.xhtml", docIndex)
}

// Rewrite reads and parses the document at docPath, downloads its images
// and returns the serialized section.
func (r *Rewriter) Rewrite(ctx context.Context, docIndex int, docPath string) (*Section, error) {
	data, err := os.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := ParseDocument(data, docPath)
	if err != nil {
		return nil, err
	}

	refs := doc.RewriteImages(ImageDir(docIndex))
	section := &Section{Images: refs}

	if len(refs) > 0 {
		dir := filepath.Join(r.opts.WorkDir, filepath.FromSlash(ImageDir(docIndex)))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create image directory: %w", err)
		}

		tasks := make([]download.Task, len(refs))
		for i, ref := range refs {
			tasks[i] = download.Task{URL: ref.URL, Path: r.localPath(ref)}
		}
		results := r.downloader.DownloadAll(ctx, tasks)
		ok, failed, skipped := download.Summary(results)
		r.logger.Debug("images downloaded", "document", docPath, "ok", ok, "failed", failed, "skipped", skipped)

		for i, ref := range refs {
			img, err := os.ReadFile(r.localPath(ref))
			if err == nil {
				err = checkDownload(results, i, img)
			}
			if err != nil {
				if r.opts.MissingImages != PolicyDrop {
					return nil, fmt.Errorf("%w: %s (%s): %v", ErrMissingImage, ref.Path, ref.Source, err)
				}
				r.logger.Warn("dropping missing image", "document", docPath, "src", ref.Source, "error", err)
				ref.node.Parent.RemoveChild(ref.node)
				section.Dropped++
				continue
			}
			section.Resources = append(section.Resources, epub.Resource{
				Name:      ref.Path,
				Data:      img,
				MediaType: MediaType(ref.Path, img),
			})
		}
	}

	if r.opts.Normalize {
		NormalizeXHTML(doc.Document)
	}

	section.Content = epub.Content{
		Name:  SectionName(docIndex),
		Data:  doc.XHTML(),
		Title: doc.Title,
		Role:  epub.RoleText,
	}
	return section, nil
}

// checkDownload reports why the bytes read back for task i cannot be used.
// Only a completed download with a non-empty file counts.
func checkDownload(results []download.Result, i int, img []byte) error {
	if i >= len(results) {
		return errors.New("no download result")
	}
	if res := results[i]; !res.OK() {
		if res.Err != nil {
			return res.Err
		}
		return fmt.Errorf("download %s", res.Status)
	}
	if len(img) == 0 {
		return errors.New("empty file")
	}
	return nil
}

func (r *Rewriter) localPath(ref ImageRef) string {
	return filepath.Join(r.opts.WorkDir, filepath.FromSlash(ref.Path))
}
