package epub

import (
	"archive/zip"
	"errors"
	"strings"
	"testing"
)

// validContainerXML is a well-formed META-INF/container.xml pointing to an OPF.
const validContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

func TestBuildContainer(t *testing.T) {
	data, err := buildContainer("OEBPS/content.opf")
	if err != nil {
		t.Fatalf("buildContainer() error = %v", err)
	}
	s := string(data)
	if !strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Errorf("missing XML declaration: %q", s)
	}
	for _, want := range []string{
		`<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">`,
		`<rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"></rootfile>`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("container.xml missing %q:\n%s", want, s)
		}
	}

	got, err := parseContainerXML(data)
	if err != nil {
		t.Fatalf("parseContainerXML(built) error = %v", err)
	}
	if got != "OEBPS/content.opf" {
		t.Errorf("round-trip opf path = %q; want %q", got, "OEBPS/content.opf")
	}
}

func TestParseContainerXML(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr error
	}{
		{name: "normal", data: validContainerXML, want: "OEBPS/content.opf"},
		{name: "with BOM", data: "\xEF\xBB\xBF" + validContainerXML, want: "OEBPS/content.opf"},
		{
			name: "prefers OPF media type",
			data: `<container><rootfiles>
  <rootfile full-path="other.pdf" media-type="application/pdf"/>
  <rootfile full-path="book.opf" media-type="application/oebps-package+xml"/>
</rootfiles></container>`,
			want: "book.opf",
		},
		{
			name: "falls back to first non-empty",
			data: `<container><rootfiles>
  <rootfile full-path="" media-type="text/plain"/>
  <rootfile full-path="a.opf" media-type="text/plain"/>
</rootfiles></container>`,
			want: "a.opf",
		},
		{name: "no rootfiles", data: `<container><rootfiles/></container>`, wantErr: ErrInvalidEPub},
		{
			name:    "empty full-path",
			data:    `<container><rootfiles><rootfile full-path=" " media-type="application/oebps-package+xml"/></rootfiles></container>`,
			wantErr: ErrInvalidEPub,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseContainerXML([]byte(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseContainerXML() error = %v; want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseContainerXML() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseContainerXML() = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestParseContainer_Missing(t *testing.T) {
	zr := openTestZip(t, buildTestZip(t, []zipFile{{name: "OEBPS/content.opf", content: "<package/>"}}))
	files := map[string]*zip.File{}
	for _, f := range zr.File {
		files[f.Name] = f
	}
	if _, err := parseContainer(files); !errors.Is(err, ErrInvalidEPub) {
		t.Errorf("parseContainer() error = %v; want ErrInvalidEPub", err)
	}
}
