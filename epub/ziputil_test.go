package epub

import (
	"bytes"
	"strings"
	"testing"
)

func TestResolveRelativePath(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		href     string
		want     string
	}{
		{"same directory", "OEBPS/content.opf", "toc.ncx", "OEBPS/toc.ncx"},
		{"parent directory", "OEBPS/content.opf", "../images/cover.jpg", "images/cover.jpg"},
		{"nested path", "OEBPS/content.opf", "text/chapter1.xhtml", "OEBPS/text/chapter1.xhtml"},
		{"root base", "content.opf", "chapter1.xhtml", "chapter1.xhtml"},
		{"dot href", "OEBPS/content.opf", "./section-1.xhtml", "OEBPS/section-1.xhtml"},
		{"escaped href", "OEBPS/content.opf", "page%201.xhtml", "OEBPS/page 1.xhtml"},
		{"traversal escapes root", "OEBPS/content.opf", "../../../secret.txt", ""},
		{"absolute href dropped", "OEBPS/content.opf", "/etc/passwd", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveRelativePath(tt.basePath, tt.href)
			if got != tt.want {
				t.Errorf("resolveRelativePath(%q, %q) = %q; want %q", tt.basePath, tt.href, got, tt.want)
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		safe bool
	}{
		{"normal path", "OEBPS/content.opf", true},
		{"root file", "mimetype", true},
		{"nested", "a/b/c/d.txt", true},
		{"double dot", "..", false},
		{"traversal prefix", "../etc/passwd", false},
		{"deep traversal", "a/../../etc/passwd", false},
		{"absolute path", "/etc/passwd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSafePath(tt.path); got != tt.safe {
				t.Errorf("isSafePath(%q) = %v; want %v", tt.path, got, tt.safe)
			}
		})
	}
}

func TestIsCanonicalPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"OEBPS/content.opf", true},
		{"mimetype", true},
		{".", false},
		{"OEBPS//content.opf", false},
		{"OEBPS/./content.opf", false},
		{"OEBPS/x/../content.opf", false},
		{`OEBPS\content.opf`, false},
	}
	for _, tt := range tests {
		if got := isCanonicalPath(tt.path); got != tt.want {
			t.Errorf("isCanonicalPath(%q) = %v; want %v", tt.path, got, tt.want)
		}
	}
}

func TestHrefWithoutFragment(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"section-1.xhtml", "section-1.xhtml"},
		{"section-1.xhtml#p3", "section-1.xhtml"},
		{"#top", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := hrefWithoutFragment(tt.href); got != tt.want {
			t.Errorf("hrefWithoutFragment(%q) = %q; want %q", tt.href, got, tt.want)
		}
	}
}

func TestStripBOM(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"with BOM", []byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, []byte("hi")},
		{"without BOM", []byte("hi"), []byte("hi")},
		{"empty", []byte{}, []byte{}},
		{"partial BOM", []byte{0xEF, 0xBB}, []byte{0xEF, 0xBB}},
		{"BOM in middle", []byte{'a', 0xEF, 0xBB, 0xBF}, []byte{'a', 0xEF, 0xBB, 0xBF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripBOM(tt.input); !bytes.Equal(got, tt.want) {
				t.Errorf("stripBOM(%v) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadZipFileWithLimit(t *testing.T) {
	data := buildTestZip(t, []zipFile{
		{name: "small.txt", content: "hello"},
		{name: "big.txt", content: strings.Repeat("A", 200)},
	})
	zr := openTestZip(t, data)

	got, err := readZipFileWithLimit(zr.File[0], 100)
	if err != nil {
		t.Fatalf("readZipFileWithLimit(small) error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("readZipFileWithLimit(small) = %q; want %q", got, "hello")
	}

	_, err = readZipFileWithLimit(zr.File[1], 100)
	if err == nil {
		t.Fatal("readZipFileWithLimit(big) should fail for an oversized entry")
	}
	if !strings.Contains(err.Error(), "too large") && !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("unexpected error: %v", err)
	}
}
