// Package epub writes ePub 3 publications as store-only ZIP archives and
// reads them back for verification.
//
// The archive writer is self-contained: CRC-32 is computed with a local
// table and every record (local headers, central directory, end record)
// is laid out by hand, so the output is byte-for-byte predictable and
// readable by standard unzip tools and ePub readers.
//
// # Building a Book
//
// Use [NewBook] with [Metadata], append [Chapter] values in reading order,
// and call [Book.Bytes] or [Book.WriteTo]:
//
//	book := epub.NewBook(epub.Metadata{Title: "Notes", Author: "A. Writer"})
//	book.AddChapter(epub.Chapter{ID: "section-1", Title: "One", Body: "<p>Hello</p>"})
//	data, err := book.Bytes()
//
// The archive always starts with the "mimetype" entry, followed by
// META-INF/container.xml, OEBPS/content.opf, OEBPS/toc.ncx, OEBPS/nav.xhtml
// and one OEBPS/<id>.xhtml document per chapter. Directory entries are
// added for every path prefix.
//
// # Raw archives
//
// [WriteArchive] and [BuildArchive] encode any ordered set of
// [ArchiveEntry] values; [WithDirectories] completes the directory entries
// and [Checksum] exposes the CRC-32 used in the headers.
//
// # Verification
//
// [Verify] opens an archive with archive/zip and checks the container
// conventions (mimetype first and stored, container.xml, spine documents,
// NCX and nav TOCs), returning a [Report].
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - [ErrInvalidEPub] – read-back verification failed
//   - [ErrArchiveTooLarge] – the archive would need ZIP64
//   - [ErrDuplicateEntry] – two entries or chapters share a path or id
//   - [ErrUnsafePath] – an entry path is empty, absolute or escapes the root
//   - [ErrNoChapters] – a Book has no chapters
//   - [ErrFileNotFound] – a spine document is missing from the archive
package epub
