// Package epub packages XHTML content, images and metadata into an EPUB 2
// container, and reads such containers back.
//
// A [Book] collects entries in reading order and serializes them with
// [Book.WriteTo]. [Open] validates an existing archive (stored mimetype,
// container.xml, OPF) and gives access to its files; [ParseOPF] and
// [ParseNCX] decode the package and navigation documents.
package epub
