package epub

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const (
	ncxFile = "toc.ncx"
	navFile = "nav.xhtml"

	ncxNamespace = "http://www.daisy.org/z3986/2005/ncx/"
)

// --- NCX (ePub 2 navigation, also read by most ePub 3 readers) ---

// ncxDocument represents the root <ncx> element of an NCX file.
type ncxDocument struct {
	XMLName  xml.Name   `xml:"ncx"`
	Xmlns    string     `xml:"xmlns,attr,omitempty"`
	Version  string     `xml:"version,attr,omitempty"`
	Head     []ncxMeta  `xml:"head>meta"`
	DocTitle ncxNavText `xml:"docTitle"`
	NavMap   ncxNavMap  `xml:"navMap"`
}

// ncxMeta is a <meta name="dtb:..." content="..."/> entry in the NCX head.
type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

// ncxNavMap represents the <navMap> element containing top-level navPoints.
type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

// ncxNavPoint represents a <navPoint> element. Generated books are flat,
// so nested navPoints are not modelled.
type ncxNavPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder string     `xml:"playOrder,attr"`
	Label     ncxNavText `xml:"navLabel"`
	Content   ncxContent `xml:"content"`
}

// ncxNavText wraps the <text> child of <navLabel> and <docTitle>.
type ncxNavText struct {
	Text string `xml:"text"`
}

// ncxContent represents the <content> element with its src attribute.
type ncxContent struct {
	Src string `xml:"src,attr"`
}

// buildNCX renders toc.ncx with one navPoint per chapter; playOrder starts at 1.
func buildNCX(md Metadata, chapters []Chapter) ([]byte, error) {
	doc := ncxDocument{
		Xmlns:   ncxNamespace,
		Version: "2005-1",
		Head: []ncxMeta{
			{Name: "dtb:uid", Content: md.Identifier},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		},
		DocTitle: ncxNavText{Text: md.Title},
	}
	for i, ch := range chapters {
		doc.NavMap.NavPoints = append(doc.NavMap.NavPoints, ncxNavPoint{
			ID:        ch.ID,
			PlayOrder: strconv.Itoa(i + 1),
			Label:     ncxNavText{Text: ch.Title},
			Content:   ncxContent{Src: chapterHref(ch)},
		})
	}
	return marshalXML(doc)
}

// parseNCX parses NCX data and returns its navPoints as TOCItem entries.
// ncxPath is the ZIP-internal path to the NCX file (e.g., "OEBPS/toc.ncx"),
// used to resolve relative hrefs to ZIP root-relative paths.
func parseNCX(data []byte, ncxPath string) ([]TOCItem, error) {
	var doc ncxDocument
	if err := xml.Unmarshal(stripBOM(data), &doc); err != nil {
		return nil, fmt.Errorf("epub: parse NCX: %w", err)
	}

	items := make([]TOCItem, 0, len(doc.NavMap.NavPoints))
	for _, np := range doc.NavMap.NavPoints {
		item := TOCItem{Title: strings.TrimSpace(np.Label.Text)}
		if order, err := strconv.Atoi(strings.TrimSpace(np.PlayOrder)); err == nil {
			item.PlayOrder = order
		}
		if src := strings.TrimSpace(np.Content.Src); src != "" {
			item.Href = resolveRelativePath(ncxPath, hrefWithoutFragment(src))
		}
		items = append(items, item)
	}
	return items, nil
}

// --- Nav document (ePub 3) ---

// buildNav renders the ePub 3 navigation document listing chapters in order.
func buildNav(md Metadata, chapters []Chapter) []byte {
	var b bytes.Buffer
	b.WriteString(xmlDeclaration)
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops"`)
	b.WriteString(` xml:lang="` + escapeXML(md.Language) + `" lang="` + escapeXML(md.Language) + `">` + "\n")
	b.WriteString("<head>\n  <title>" + escapeXML(md.Title) + "</title>\n</head>\n<body>\n")
	b.WriteString(`  <nav epub:type="toc" id="toc">` + "\n")
	b.WriteString("    <h1>" + escapeXML(md.Title) + "</h1>\n    <ol>\n")
	for _, ch := range chapters {
		fmt.Fprintf(&b, "      <li><a href=\"%s\">%s</a></li>\n", escapeXML(chapterHref(ch)), escapeXML(ch.Title))
	}
	b.WriteString("    </ol>\n  </nav>\n</body>\n</html>\n")
	return b.Bytes()
}

// parseNavDocument parses an ePub 3 XHTML nav document and returns the
// entries of its toc nav. basePath is the ZIP-internal path of the nav
// document (for resolving relative hrefs).
func parseNavDocument(data []byte, basePath string) ([]TOCItem, error) {
	doc, err := html.Parse(bytes.NewReader(stripBOM(data)))
	if err != nil {
		return nil, fmt.Errorf("epub: parse nav document: %w", err)
	}

	var toc []TOCItem
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "nav" && hasEpubType(n, "toc") {
			if ol := findFirstChildElement(n, "ol"); ol != nil {
				toc = parseNavOL(ol, basePath)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return toc, nil
}

// parseNavOL processes an <ol> element and returns its <li> children as TOCItem entries.
func parseNavOL(ol *html.Node, basePath string) []TOCItem {
	var items []TOCItem
	for c := ol.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		if a := findFirstChildElement(c, "a"); a != nil {
			items = append(items, TOCItem{
				Title: strings.TrimSpace(nodeTextContent(a)),
				Href:  resolveRelativePath(basePath, hrefWithoutFragment(navGetAttr(a, "href"))),
			})
		}
	}
	return items
}

// hasEpubType checks whether n has an epub:type attribute containing the given token
// (space-separated token matching).
func hasEpubType(n *html.Node, typeName string) bool {
	for _, t := range strings.Fields(navGetAttr(n, "epub:type")) {
		if t == typeName {
			return true
		}
	}
	return false
}

// navGetAttr returns the value of the attribute with the given key on n.
func navGetAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirstChildElement performs a depth-first search for the first descendant
// element with the given tag name.
func findFirstChildElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findFirstChildElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// nodeTextContent recursively collects all text content within a node.
func nodeTextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeTextContent(c))
	}
	return sb.String()
}
