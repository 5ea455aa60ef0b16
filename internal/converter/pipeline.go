package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/yuanying/html2epub/internal/download"
	"github.com/yuanying/html2epub/internal/epub"
	"github.com/yuanying/html2epub/internal/fetch"
)

// Defaults applied by NewPipeline to empty options.
const (
	DefaultTitle      = "HTML"
	DefaultAuthor     = "html_to_epub"
	DefaultOutputPath = "output.epub"

	coverPageName  = "cover.xhtml"
	coverPageTitle = "Cover"
)

// ErrNoDocuments is returned when there is nothing to convert.
var ErrNoDocuments = errors.New("no input documents")

// ConvertOptions holds options for the conversion pipeline.
type ConvertOptions struct {
	Inputs     []string
	OutputPath string
	Title      string
	Author     string

	// Cover is the cover image. Empty generates a cover showing the title.
	Cover []byte

	// CoverPage adds a cover page in front of the first section.
	CoverPage bool

	MissingImages MissingImagePolicy
	WorkDir       string
	KeepImages    bool
	Normalize     bool

	// Fetch configures the HTTP client used for images.
	Fetch fetch.Options

	// Downloader overrides the HTTP downloader built from Fetch.
	Downloader BatchDownloader

	Logger *slog.Logger
}

// Pipeline orchestrates the HTML to EPUB conversion.
type Pipeline struct {
	Options ConvertOptions

	downloader BatchDownloader
	logger     *slog.Logger
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Author == "" {
		opts.Author = DefaultAuthor
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := opts.Downloader
	if d == nil {
		d = download.New(fetch.NewClient(opts.Fetch), logger)
	}
	return &Pipeline{Options: opts, downloader: d, logger: logger}
}

// Convert executes the conversion pipeline. Documents are processed one
// after another in input order; the archive is only written when every
// document succeeded.
func (p *Pipeline) Convert(ctx context.Context) error {
	opts := p.Options
	if len(opts.Inputs) == 0 {
		return ErrNoDocuments
	}

	book := epub.NewBook(epub.Metadata{
		Title:    opts.Title,
		Creators: []epub.Creator{{Name: opts.Author, Role: "aut"}},
	})
	if err := p.addCover(book); err != nil {
		return err
	}

	rw := NewRewriter(p.downloader, RewriterOptions{
		WorkDir:       opts.WorkDir,
		MissingImages: opts.MissingImages,
		Normalize:     opts.Normalize,
		Logger:        p.logger,
	})

	images := 0
	for i, input := range opts.Inputs {
		p.logger.Info("processing document", "index", i, "path", input)
		section, err := rw.Rewrite(ctx, i, input)
		if err != nil {
			return fmt.Errorf("failed to convert %s: %w", input, err)
		}
		if err := book.AddContent(section.Content); err != nil {
			return fmt.Errorf("failed to add %s: %w", input, err)
		}
		for _, res := range section.Resources {
			if err := book.AddResource(res); err != nil {
				return fmt.Errorf("failed to add image %s: %w", res.Name, err)
			}
		}
		images += len(section.Resources)
		if section.Dropped > 0 {
			p.logger.Warn("images dropped", "path", input, "count", section.Dropped)
		}
	}

	if err := book.WriteFile(opts.OutputPath); err != nil {
		return fmt.Errorf("failed to write EPUB: %w", err)
	}
	p.logger.Info("wrote EPUB", "path", opts.OutputPath, "sections", len(opts.Inputs), "images", images)

	if !opts.KeepImages {
		p.removeImages(len(opts.Inputs))
	}
	return nil
}

// addCover registers the cover image and, if enabled, the cover page.
func (p *Pipeline) addCover(book *epub.Book) error {
	data := p.Options.Cover
	if len(data) == 0 {
		var err error
		if data, err = DefaultCover(p.Options.Title); err != nil {
			return err
		}
	}
	cover, err := NewCoverImage(data)
	if err != nil {
		return fmt.Errorf("failed to load cover: %w", err)
	}
	if err := book.SetCoverImage(cover.Name, cover.Data, cover.MediaType); err != nil {
		return fmt.Errorf("failed to add cover: %w", err)
	}

	if !p.Options.CoverPage {
		return nil
	}
	return book.AddContent(epub.Content{Name: coverPageName, Title: coverPageTitle, Role: epub.RoleCover})
}

// removeImages deletes the per-document image directories and the image
// directory itself if it ended up empty.
func (p *Pipeline) removeImages(docs int) {
	for i := range docs {
		dir := filepath.Join(p.Options.WorkDir, filepath.FromSlash(ImageDir(i)))
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("failed to remove image directory", "path", dir, "error", err)
		}
	}
	root := filepath.Join(p.Options.WorkDir, "image")
	if entries, err := os.ReadDir(root); err == nil && len(entries) == 0 {
		_ = os.Remove(root)
	}
}
