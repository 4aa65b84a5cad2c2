package epub

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"
)

// fixedModified is the dcterms:modified timestamp used by test books.
var fixedModified = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

// zipFile is one entry of a fixture archive built with archive/zip.
type zipFile struct {
	name    string
	content string
	method  uint16
}

// buildTestZip creates an in-memory ZIP archive with archive/zip, writing
// files in the given order, and returns the raw bytes. It is used to build
// archives the package itself would never produce.
// It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files []zipFile) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: f.name, Method: f.method})
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", f.name, err)
		}
		if _, err := io.WriteString(fw, f.content); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

// openTestZip opens data with archive/zip and calls t.Fatal on error.
func openTestZip(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	return zr
}

// readEntry returns the content of the named entry in zr, failing the test
// if it is missing.
func readEntry(t *testing.T, zr *zip.Reader, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("entry %s not found", name)
	return ""
}

// newTestBook returns a Book with a fixed identifier and timestamp and the
// given chapters.
func newTestBook(md Metadata, chapters ...Chapter) *Book {
	if md.Identifier == "" {
		md.Identifier = "urn:uuid:00000000-0000-4000-8000-000000000000"
	}
	b := NewBook(md)
	b.SetModified(fixedModified)
	for _, ch := range chapters {
		b.AddChapter(ch)
	}
	return b
}

// buildTestBook renders newTestBook and calls t.Fatal on error.
func buildTestBook(t *testing.T, md Metadata, chapters ...Chapter) []byte {
	t.Helper()
	data, err := newTestBook(md, chapters...).Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	return data
}
