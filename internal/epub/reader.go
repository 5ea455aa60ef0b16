package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var (
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeNotFirst   = errors.New("mimetype must be the first archive entry")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
	ErrContainerNotFound  = errors.New("META-INF/container.xml not found")
	ErrOPFPathNotFound    = errors.New("OPF path not found in container.xml")
)

// EPUBReader provides access to EPUB file contents
type EPUBReader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	names     []string
	opfPath   string
}

// Open opens an EPUB file and validates its structure
func Open(path string) (*EPUBReader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	reader := &EPUBReader{
		zipReader: zr,
		files:     make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		reader.files[name] = f
		reader.names = append(reader.names, name)
	}

	if err := reader.validateMimetype(); err != nil {
		zr.Close()
		return nil, err
	}
	if err := reader.parseContainer(); err != nil {
		zr.Close()
		return nil, err
	}

	return reader, nil
}

// Close closes the EPUB reader
func (r *EPUBReader) Close() error {
	return r.zipReader.Close()
}

// OPFPath returns the path to the OPF file
func (r *EPUBReader) OPFPath() string {
	return r.opfPath
}

// Names returns all entry names in archive order.
func (r *EPUBReader) Names() []string {
	return append([]string(nil), r.names...)
}

// ReadFile reads the contents of a file from the EPUB
func (r *EPUBReader) ReadFile(name string) ([]byte, error) {
	name = normalizePath(name)
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Package parses the OPF and, when the spine names one, the NCX.
func (r *EPUBReader) Package() (*OPF, *NCX, error) {
	data, err := r.ReadFile(r.opfPath)
	if err != nil {
		return nil, nil, err
	}
	opf, err := ParseOPF(data, path.Dir(r.opfPath))
	if err != nil {
		return nil, nil, err
	}
	if opf.NCXPath == "" {
		return opf, nil, nil
	}

	ncxData, err := r.ReadFile(opf.NCXPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read NCX: %w", err)
	}
	ncx, err := ParseNCX(ncxData, path.Dir(opf.NCXPath))
	if err != nil {
		return nil, nil, err
	}
	return opf, ncx, nil
}

// validateMimetype checks that the mimetype file is the first, stored entry
func (r *EPUBReader) validateMimetype() error {
	f, ok := r.files["mimetype"]
	if !ok {
		return ErrMimetypeNotFound
	}
	if r.names[0] != "mimetype" {
		return ErrMimetypeNotFirst
	}
	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}

	content, err := r.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}
	if string(content) != mimetype {
		return ErrInvalidMimetype
	}

	return nil
}

// parseContainer parses container.xml to extract OPF path
func (r *EPUBReader) parseContainer() error {
	content, err := r.ReadFile(containerPath)
	if err != nil {
		return ErrContainerNotFound
	}

	var c container
	if err := xml.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("failed to parse container.xml: %w", err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == opfMediaType || rf.MediaType == "" {
			r.opfPath = normalizePath(rf.FullPath)
			return nil
		}
	}
	if len(c.Rootfiles.Rootfile) > 0 {
		r.opfPath = normalizePath(c.Rootfiles.Rootfile[0].FullPath)
		return nil
	}

	return ErrOPFPathNotFound
}

// normalizePath normalizes file paths (removes ./ prefix)
func normalizePath(path string) string {
	return strings.TrimPrefix(path, "./")
}
