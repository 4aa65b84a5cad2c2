package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"time"
)

// expectedMimetype is the required content of the "mimetype" file in a valid ePub.
const expectedMimetype = "application/epub+zip"

// mimetypePath is the name of the entry that must come first in the archive.
const mimetypePath = "mimetype"

// opfPath is the ZIP-internal location of the generated package document.
var opfPath = path.Join(contentDir, "content.opf")

// Book assembles an ePub 3 publication from metadata and an ordered list of
// chapters. Use NewBook to create one, AddChapter to append chapters, and
// Bytes or WriteTo to produce the archive.
//
// A Book is not safe for concurrent use by multiple goroutines.
type Book struct {
	metadata Metadata
	chapters []Chapter
	modified time.Time
}

// NewBook returns a Book for md. Empty metadata fields are filled in
// (see UnknownAuthor, DefaultLanguage, NewIdentifier); the identifier is
// fixed at this point so repeated renders of one Book agree.
func NewBook(md Metadata) *Book {
	return &Book{
		metadata: md.withDefaults(),
		modified: time.Now().UTC(),
	}
}

// AddChapter appends ch to the reading order.
func (b *Book) AddChapter(ch Chapter) {
	b.chapters = append(b.chapters, ch)
}

// SetModified overrides the dcterms:modified timestamp (default: creation time).
func (b *Book) SetModified(t time.Time) {
	b.modified = t.UTC()
}

// Metadata returns the metadata that will be written, defaults applied.
func (b *Book) Metadata() Metadata {
	return b.metadata
}

// Chapters returns a copy of the chapters added so far.
func (b *Book) Chapters() []Chapter {
	return append([]Chapter(nil), b.chapters...)
}

// Entries returns the complete, ordered archive entry set: mimetype first,
// then META-INF/container.xml, the package document, toc.ncx, nav.xhtml
// and one XHTML document per chapter, with every directory prefix added
// exactly once.
func (b *Book) Entries() ([]ArchiveEntry, error) {
	if len(b.chapters) == 0 {
		return nil, ErrNoChapters
	}
	chapters, err := normalizeChapters(b.chapters)
	if err != nil {
		return nil, err
	}

	md := b.metadata
	modified := b.modified.Format("2006-01-02T15:04:05Z")

	container, err := buildContainer(opfPath)
	if err != nil {
		return nil, err
	}
	opf, err := buildPackage(md, modified, chapters)
	if err != nil {
		return nil, err
	}
	ncx, err := buildNCX(md, chapters)
	if err != nil {
		return nil, err
	}

	entries := []ArchiveEntry{
		{Path: mimetypePath, Data: []byte(expectedMimetype)},
		{Path: containerPath, Data: container},
		{Path: opfPath, Data: opf},
		{Path: path.Join(contentDir, ncxFile), Data: ncx},
		{Path: path.Join(contentDir, navFile), Data: buildNav(md, chapters)},
	}
	for _, ch := range chapters {
		doc, err := chapterDocument(ch, md.Language)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ArchiveEntry{
			Path: path.Join(contentDir, chapterHref(ch)),
			Data: doc,
		})
	}

	return WithDirectories(entries), nil
}

// Bytes renders the book as a store-only ePub archive.
func (b *Book) Bytes() ([]byte, error) {
	entries, err := b.Entries()
	if err != nil {
		return nil, err
	}
	return BuildArchive(entries)
}

// WriteTo writes the archive to w. It implements io.WriterTo.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	entries, err := b.Entries()
	if err != nil {
		return 0, err
	}
	return WriteArchive(w, entries)
}

// Report describes an archive that passed Verify.
type Report struct {
	// Metadata is read back from the package document.
	Metadata Metadata

	// OPFPath is the package document location named by container.xml.
	OPFPath string

	// Spine lists the ZIP-internal paths of the spine documents in order.
	Spine []string

	// TOC holds the NCX navPoints; Nav holds the ePub 3 nav entries.
	TOC []TOCItem
	Nav []TOCItem

	// Text maps each spine path to its extracted plain text.
	Text map[string]string

	// Warnings lists non-fatal oddities (e.g., TOC and spine lengths differ).
	Warnings []string
}

// Verify reads data back as an ePub and checks the container conventions
// readers rely on: "mimetype" is the first entry, stored, without extra
// field, and holds exactly "application/epub+zip"; container.xml names a
// package document; every spine item resolves to a parseable document.
// Failures wrap ErrInvalidEPub.
func Verify(data []byte) (*Report, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("epub: open zip: %w: %w", err, ErrInvalidEPub)
	}
	if err := validateMimetype(zr); err != nil {
		return nil, err
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if _, dup := files[f.Name]; dup {
			return nil, fmt.Errorf("epub: duplicate entry %s: %w", f.Name, ErrInvalidEPub)
		}
		files[f.Name] = f
	}

	rep := &Report{Text: make(map[string]string)}
	if rep.OPFPath, err = parseContainer(files); err != nil {
		return nil, err
	}

	opfFile, ok := files[rep.OPFPath]
	if !ok {
		return nil, fmt.Errorf("epub: OPF file not found in archive: %s: %w", rep.OPFPath, ErrInvalidEPub)
	}
	opfData, err := readZipFile(opfFile)
	if err != nil {
		return nil, fmt.Errorf("epub: read OPF file: %w", err)
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, ErrInvalidEPub)
	}
	rep.Metadata = extractMetadata(pkg)
	manifest := buildManifestMap(pkg.Manifest)

	for _, ref := range pkg.Spine.ItemRefs {
		item, ok := manifest[ref.IDRef]
		if !ok {
			return nil, fmt.Errorf("epub: spine idref %q not in manifest: %w", ref.IDRef, ErrInvalidEPub)
		}
		docPath := resolveRelativePath(rep.OPFPath, item.Href)
		doc, ok := files[docPath]
		if !ok {
			return nil, fmt.Errorf("epub: spine document %s: %w", docPath, ErrFileNotFound)
		}
		raw, err := readZipFile(doc)
		if err != nil {
			return nil, err
		}
		text, err := extractText(raw)
		if err != nil {
			return nil, fmt.Errorf("epub: spine document %s: %w: %w", docPath, err, ErrInvalidEPub)
		}
		rep.Spine = append(rep.Spine, docPath)
		rep.Text[docPath] = text
	}

	rep.TOC = readNCX(files, manifest, pkg.Spine.Toc, rep)
	rep.Nav = readNav(files, pkg.Manifest, rep)
	if len(rep.TOC) != len(rep.Spine) {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("NCX has %d entries for %d spine items", len(rep.TOC), len(rep.Spine)))
	}
	return rep, nil
}

// validateMimetype checks that the first ZIP entry is named "mimetype",
// stored without compression or extra field, and contains exactly
// "application/epub+zip".
func validateMimetype(zr *zip.Reader) error {
	if len(zr.File) == 0 {
		return fmt.Errorf("epub: empty ZIP archive: %w", ErrInvalidEPub)
	}

	first := zr.File[0]
	if first.Name != mimetypePath {
		return fmt.Errorf("epub: first ZIP entry is %q, not \"mimetype\": %w", first.Name, ErrInvalidEPub)
	}
	if first.Method != zip.Store || len(first.Extra) > 0 {
		return fmt.Errorf("epub: mimetype entry must be stored without extra field: %w", ErrInvalidEPub)
	}

	data, err := readZipFile(first)
	if err != nil {
		return fmt.Errorf("epub: cannot read mimetype entry: %w", err)
	}
	if string(data) != expectedMimetype {
		return fmt.Errorf("epub: unexpected mimetype %q: %w", string(data), ErrInvalidEPub)
	}
	return nil
}

func readNCX(files map[string]*zip.File, manifest map[string]*manifestItem, tocID string, rep *Report) []TOCItem {
	item, ok := manifest[tocID]
	if !ok {
		rep.Warnings = append(rep.Warnings, "spine has no NCX reference")
		return nil
	}
	ncxPath := resolveRelativePath(rep.OPFPath, item.Href)
	f, ok := files[ncxPath]
	if !ok {
		rep.Warnings = append(rep.Warnings, "NCX file missing: "+ncxPath)
		return nil
	}
	data, err := readZipFile(f)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("failed to read NCX file: %v", err))
		return nil
	}
	toc, err := parseNCX(data, ncxPath)
	if err != nil {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("failed to parse NCX file: %v", err))
		return nil
	}
	return toc
}

func readNav(files map[string]*zip.File, manifest opfManifest, rep *Report) []TOCItem {
	for _, item := range manifest.Items {
		if item.Properties != "nav" {
			continue
		}
		navPath := resolveRelativePath(rep.OPFPath, item.Href)
		f, ok := files[navPath]
		if !ok {
			rep.Warnings = append(rep.Warnings, "nav document missing: "+navPath)
			return nil
		}
		data, err := readZipFile(f)
		if err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("failed to read nav document: %v", err))
			return nil
		}
		nav, err := parseNavDocument(data, navPath)
		if err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("failed to parse nav document: %v", err))
			return nil
		}
		return nav
	}
	return nil
}
