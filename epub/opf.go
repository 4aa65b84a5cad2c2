package epub

import (
	"encoding/xml"
	"fmt"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"

	xhtmlMediaType = "application/xhtml+xml"
	ncxMediaType   = "application/x-dtbncx+xml"
)

// --- package document encoding ---

// packageDocument is the root <package> element written to content.opf.
// Dublin Core elements are written with a literal "dc:" prefix declared on
// <metadata>.
type packageDocument struct {
	XMLName          xml.Name        `xml:"package"`
	Xmlns            string          `xml:"xmlns,attr"`
	Version          string          `xml:"version,attr"`
	UniqueIdentifier string          `xml:"unique-identifier,attr"`
	Metadata         packageMetadata `xml:"metadata"`
	Manifest         []packageItem   `xml:"manifest>item"`
	Spine            packageSpine    `xml:"spine"`
}

type packageMetadata struct {
	XmlnsDC    string        `xml:"xmlns:dc,attr"`
	Identifier dcIdentifier  `xml:"dc:identifier"`
	Title      string        `xml:"dc:title"`
	Creator    string        `xml:"dc:creator"`
	Language   string        `xml:"dc:language"`
	Date       string        `xml:"dc:date,omitempty"`
	Metas      []packageMeta `xml:"meta"`
}

type dcIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type packageMeta struct {
	Property string `xml:"property,attr"`
	Value    string `xml:",chardata"`
}

type packageItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type packageSpine struct {
	Toc      string           `xml:"toc,attr"`
	ItemRefs []packageItemRef `xml:"itemref"`
}

type packageItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// --- package document decoding (read-back) ---

// opfPackage represents the root <package> element of an OPF file.
type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
}

// opfMetadata holds the raw Dublin Core elements from the OPF file.
type opfMetadata struct {
	Titles      []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages   []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifiers []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
}

// opfDCElement holds a Dublin Core element value and its id.
type opfDCElement struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	Toc      string            `xml:"toc,attr"`
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// buildPackage renders content.opf for md and chapters. Manifest order is
// ncx, nav, then chapters; the spine lists chapters in the given order.
func buildPackage(md Metadata, modified string, chapters []Chapter) ([]byte, error) {
	doc := packageDocument{
		Xmlns:            opfNamespace,
		Version:          "3.0",
		UniqueIdentifier: "uid",
		Metadata: packageMetadata{
			XmlnsDC:    dcNamespace,
			Identifier: dcIdentifier{ID: "uid", Value: md.Identifier},
			Title:      md.Title,
			Creator:    md.Author,
			Language:   md.Language,
			Date:       dateOf(modified),
			Metas: []packageMeta{
				{Property: "dcterms:modified", Value: modified},
			},
		},
		Manifest: []packageItem{
			{ID: "ncx", Href: ncxFile, MediaType: ncxMediaType},
			{ID: "nav", Href: navFile, MediaType: xhtmlMediaType, Properties: "nav"},
		},
		Spine: packageSpine{Toc: "ncx"},
	}

	for _, ch := range chapters {
		doc.Manifest = append(doc.Manifest, packageItem{
			ID:        ch.ID,
			Href:      chapterHref(ch),
			MediaType: xhtmlMediaType,
		})
		doc.Spine.ItemRefs = append(doc.Spine.ItemRefs, packageItemRef{IDRef: ch.ID})
	}

	return marshalXML(doc)
}

// dateOf returns the YYYY-MM-DD prefix of an RFC 3339 timestamp.
func dateOf(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}

// parseOPF parses the OPF file content and returns the parsed package structure.
func parseOPF(data []byte) (*opfPackage, error) {
	var pkg opfPackage
	if err := xml.Unmarshal(stripBOM(data), &pkg); err != nil {
		return nil, fmt.Errorf("epub: parse OPF: %w", err)
	}
	if pkg.Version == "" {
		pkg.Version = "2.0"
	}
	return &pkg, nil
}

// buildManifestMap creates an ID lookup from the parsed OPF manifest.
func buildManifestMap(manifest opfManifest) map[string]*manifestItem {
	byID := make(map[string]*manifestItem, len(manifest.Items))
	for _, item := range manifest.Items {
		byID[item.ID] = &manifestItem{
			ID:         item.ID,
			Href:       item.Href,
			MediaType:  item.MediaType,
			Properties: item.Properties,
		}
	}
	return byID
}
