package epub

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// ZIP record signatures and fixed sizes (APPNOTE.TXT 4.3).
const (
	localHeaderSignature   = 0x04034b50
	centralHeaderSignature = 0x02014b50
	endOfCentralSignature  = 0x06054b50

	localHeaderLen   = 30
	centralHeaderLen = 46
	endOfCentralLen  = 22

	zipVersion  = 20 // 2.0: stored entries and directories
	methodStore = 0

	attrDirectory = 0x10 // MS-DOS directory attribute
	attrArchive   = 0x20 // MS-DOS archive attribute, used for regular files
)

// centralRecord carries the values mirrored from a local header into the
// central directory.
type centralRecord struct {
	name   string
	crc    uint32
	size   uint32
	offset uint32
	isDir  bool
}

// BuildArchive returns the store-only ZIP encoding of entries.
// See WriteArchive for the validation rules.
func BuildArchive(entries []ArchiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := WriteArchive(&buf, entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteArchive writes entries to w as an uncompressed ZIP archive, in the
// given order, and returns the number of bytes written.
//
// Every entry gets a local file header (no extra field, zero timestamps)
// followed by its raw bytes; a central directory and an end-of-central-
// directory record follow the last entry. Entry paths must be unique and
// safe (see isSafePath). Archives that would need ZIP64 are rejected with
// ErrArchiveTooLarge before anything is written.
func WriteArchive(w io.Writer, entries []ArchiveEntry) (int64, error) {
	names, err := validateEntries(entries)
	if err != nil {
		return 0, err
	}

	aw := &archiveWriter{w: w}
	records := make([]centralRecord, 0, len(entries))
	for i, e := range entries {
		rec, err := aw.writeLocal(names[i], e)
		if err != nil {
			return aw.n, err
		}
		records = append(records, rec)
	}

	if aw.n > math.MaxUint32 {
		return aw.n, fmt.Errorf("epub: central directory offset %d: %w", aw.n, ErrArchiveTooLarge)
	}
	cdStart := uint32(aw.n)
	for _, rec := range records {
		if err := aw.writeCentral(rec); err != nil {
			return aw.n, err
		}
	}
	cdSize := aw.n - int64(cdStart)
	if aw.n > math.MaxUint32 {
		return aw.n, fmt.Errorf("epub: central directory end %d: %w", aw.n, ErrArchiveTooLarge)
	}

	if err := aw.writeEnd(uint16(len(records)), uint32(cdSize), cdStart); err != nil {
		return aw.n, err
	}
	return aw.n, nil
}

// validateEntries checks the whole entry set up front and returns the
// on-disk name of each entry (directories get a trailing slash).
func validateEntries(entries []ArchiveEntry) ([]string, error) {
	if len(entries) > math.MaxUint16 {
		return nil, fmt.Errorf("epub: %d entries: %w", len(entries), ErrArchiveTooLarge)
	}

	names := make([]string, len(entries))
	seen := make(map[string]bool, len(entries))
	var total int64
	for i, e := range entries {
		clean := strings.TrimSuffix(e.Path, "/")
		if clean == "" || !isSafePath(clean) || !isCanonicalPath(clean) {
			return nil, fmt.Errorf("epub: entry %q: %w", e.Path, ErrUnsafePath)
		}
		if seen[clean] {
			return nil, fmt.Errorf("epub: entry %q: %w", e.Path, ErrDuplicateEntry)
		}
		seen[clean] = true

		name := clean
		if e.IsDir {
			if len(e.Data) > 0 {
				return nil, fmt.Errorf("epub: directory %q has content", e.Path)
			}
			name += "/"
		}
		if len(name) > math.MaxUint16 {
			return nil, fmt.Errorf("epub: entry name of %d bytes: %w", len(name), ErrArchiveTooLarge)
		}
		if int64(len(e.Data)) > math.MaxUint32 {
			return nil, fmt.Errorf("epub: entry %q of %d bytes: %w", e.Path, len(e.Data), ErrArchiveTooLarge)
		}

		total += localHeaderLen + centralHeaderLen + 2*int64(len(name)) + int64(len(e.Data))
		if total+endOfCentralLen > math.MaxUint32 {
			return nil, fmt.Errorf("epub: archive larger than 4 GiB: %w", ErrArchiveTooLarge)
		}
		names[i] = name
	}
	return names, nil
}

// archiveWriter tracks the running offset while records are emitted.
type archiveWriter struct {
	w io.Writer
	n int64
}

func (aw *archiveWriter) write(p []byte) error {
	n, err := aw.w.Write(p)
	aw.n += int64(n)
	if err != nil {
		return fmt.Errorf("epub: write archive: %w", err)
	}
	return nil
}

func (aw *archiveWriter) writeLocal(name string, e ArchiveEntry) (centralRecord, error) {
	rec := centralRecord{
		name:   name,
		size:   uint32(len(e.Data)),
		offset: uint32(aw.n),
		isDir:  e.IsDir,
	}
	if !e.IsDir {
		rec.crc = Checksum(e.Data)
	}

	var h [localHeaderLen]byte
	b := writeBuf(h[:])
	b.uint32(localHeaderSignature)
	b.uint16(zipVersion)
	b.uint16(0) // flags
	b.uint16(methodStore)
	b.uint16(0) // mod time
	b.uint16(0) // mod date
	b.uint32(rec.crc)
	b.uint32(rec.size) // compressed
	b.uint32(rec.size) // uncompressed
	b.uint16(uint16(len(name)))
	b.uint16(0) // extra field length

	if err := aw.write(h[:]); err != nil {
		return rec, err
	}
	if err := aw.write([]byte(name)); err != nil {
		return rec, err
	}
	if len(e.Data) > 0 {
		if err := aw.write(e.Data); err != nil {
			return rec, err
		}
	}
	return rec, nil
}

func (aw *archiveWriter) writeCentral(rec centralRecord) error {
	attrs := uint32(attrArchive)
	if rec.isDir {
		attrs = attrDirectory
	}

	var h [centralHeaderLen]byte
	b := writeBuf(h[:])
	b.uint32(centralHeaderSignature)
	b.uint16(zipVersion) // version made by
	b.uint16(zipVersion) // version needed
	b.uint16(0)          // flags
	b.uint16(methodStore)
	b.uint16(0) // mod time
	b.uint16(0) // mod date
	b.uint32(rec.crc)
	b.uint32(rec.size)
	b.uint32(rec.size)
	b.uint16(uint16(len(rec.name)))
	b.uint16(0) // extra field length
	b.uint16(0) // comment length
	b.uint16(0) // disk number start
	b.uint16(0) // internal attributes
	b.uint32(attrs)
	b.uint32(rec.offset)

	if err := aw.write(h[:]); err != nil {
		return err
	}
	return aw.write([]byte(rec.name))
}

func (aw *archiveWriter) writeEnd(count uint16, cdSize, cdStart uint32) error {
	var h [endOfCentralLen]byte
	b := writeBuf(h[:])
	b.uint32(endOfCentralSignature)
	b.uint16(0) // this disk
	b.uint16(0) // disk with central directory
	b.uint16(count)
	b.uint16(count)
	b.uint32(cdSize)
	b.uint32(cdStart)
	b.uint16(0) // comment length
	return aw.write(h[:])
}

// writeBuf is a little-endian cursor over a fixed header buffer.
type writeBuf []byte

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

// WithDirectories returns entries with a directory entry inserted for every
// directory prefix of every file path that does not already have one. Each
// missing directory is placed immediately before the first entry that
// lives under it, so a leading "mimetype" entry stays first.
func WithDirectories(entries []ArchiveEntry) []ArchiveEntry {
	have := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir {
			have[strings.TrimSuffix(e.Path, "/")] = true
		}
	}

	out := make([]ArchiveEntry, 0, len(entries))
	for _, e := range entries {
		for _, dir := range parentDirs(strings.TrimSuffix(e.Path, "/")) {
			if have[dir] {
				continue
			}
			have[dir] = true
			out = append(out, ArchiveEntry{Path: dir + "/", IsDir: true})
		}
		out = append(out, e)
	}
	return out
}

// parentDirs returns the proper directory prefixes of p, outermost first:
// "a/b/c.txt" → ["a", "a/b"].
func parentDirs(p string) []string {
	var dirs []string
	for i := 0; i < len(p); i++ {
		if p[i] == '/' {
			dirs = append(dirs, p[:i])
		}
	}
	return dirs
}
