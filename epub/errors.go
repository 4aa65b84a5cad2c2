package epub

import "errors"

// Sentinel errors returned by the epub package.
var (
	// ErrInvalidEPub indicates that a generated archive failed read-back
	// verification (e.g., mimetype not first, missing package document).
	ErrInvalidEPub = errors.New("epub: invalid ePub file")

	// ErrFileNotFound indicates the requested file does not exist
	// in the ePub archive.
	ErrFileNotFound = errors.New("epub: file not found in archive")

	// ErrArchiveTooLarge indicates an entry size, entry count or offset
	// does not fit the 16/32-bit fields of a non-ZIP64 archive.
	ErrArchiveTooLarge = errors.New("epub: archive exceeds ZIP size limits")

	// ErrDuplicateEntry indicates two archive entries share the same path.
	ErrDuplicateEntry = errors.New("epub: duplicate archive entry")

	// ErrUnsafePath indicates an archive entry path that is empty, absolute,
	// or escapes the archive root.
	ErrUnsafePath = errors.New("epub: unsafe archive entry path")

	// ErrNoChapters indicates a Book was assembled without any chapter.
	ErrNoChapters = errors.New("epub: book has no chapters")
)
