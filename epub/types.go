package epub

// ArchiveEntry is a named file or directory marker written to the archive.
type ArchiveEntry struct {
	// Path is the forward-slash separated path inside the archive. Directory
	// paths may be given with or without a trailing slash.
	Path string

	// Data is the uncompressed file content. It must be empty for directories.
	Data []byte

	// IsDir marks a directory entry (CRC 0, external attribute 0x10).
	IsDir bool
}

// Metadata holds the Dublin Core values written to the package document.
type Metadata struct {
	// Title is the dc:title value.
	Title string

	// Author is the dc:creator value. Empty means UnknownAuthor.
	Author string

	// Language is the dc:language value (BCP 47). Empty means "en".
	Language string

	// Identifier is the dc:identifier value. Empty means a fresh urn:uuid.
	Identifier string
}

// Chapter is one spine document of a generated book.
type Chapter struct {
	// ID is the manifest item id and the file stem of the document
	// (e.g., "section-1" → "OEBPS/section-1.xhtml"). Empty IDs are
	// replaced with "chapter-N".
	ID string

	// Title is used as the document title and the TOC label.
	Title string

	// Body is the inner HTML of the document body.
	Body string
}

// TOCItem represents a single entry in a table of contents read back
// from a generated archive.
type TOCItem struct {
	// Title is the display text of the TOC entry.
	Title string

	// Href is the ZIP-internal path of the target document.
	Href string

	// PlayOrder is the NCX playOrder attribute, or 0 for nav document entries.
	PlayOrder int
}

// manifestItem represents an entry in the OPF <manifest> element.
type manifestItem struct {
	// ID is the unique identifier of this manifest item.
	ID string

	// Href is the file path relative to the OPF file location.
	Href string

	// MediaType is the MIME type of the resource.
	MediaType string

	// Properties contains space-separated property values (ePub 3, e.g., "nav").
	Properties string
}
