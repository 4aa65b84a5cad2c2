package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"
)

// containerPath is the well-known location of container.xml in an ePub archive.
const containerPath = "META-INF/container.xml"

const (
	containerNamespace = "urn:oasis:names:tc:opendocument:xmlns:container"
	opfMediaType       = "application/oebps-package+xml"
)

// containerXML models the META-INF/container.xml file used to locate the OPF.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	Version   string     `xml:"version,attr,omitempty"`
	Xmlns     string     `xml:"xmlns,attr,omitempty"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// buildContainer renders container.xml pointing at the package document.
func buildContainer(opfPath string) ([]byte, error) {
	c := containerXML{
		Version: "1.0",
		Xmlns:   containerNamespace,
		RootFiles: []rootFile{
			{FullPath: opfPath, MediaType: opfMediaType},
		},
	}
	return marshalXML(c)
}

// parseContainer locates the OPF path through META-INF/container.xml.
// Generated books always carry a container, so there is no .opf scan
// fallback.
func parseContainer(files map[string]*zip.File) (string, error) {
	f, ok := files[containerPath]
	if !ok {
		return "", fmt.Errorf("epub: %s missing: %w", containerPath, ErrInvalidEPub)
	}
	data, err := readZipFile(f)
	if err != nil {
		return "", fmt.Errorf("epub: read container.xml: %w", err)
	}
	return parseContainerXML(data)
}

// parseContainerXML decodes container.xml and returns the full-path of the
// first rootfile with the OPF media type, or of the first non-empty rootfile.
func parseContainerXML(data []byte) (string, error) {
	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w", err)
	}

	if len(c.RootFiles) == 0 {
		return "", fmt.Errorf("epub: container.xml has no rootfile entries: %w", ErrInvalidEPub)
	}

	var fallbackPath string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), opfMediaType) {
			return fullPath, nil
		}
		if fallbackPath == "" {
			fallbackPath = fullPath
		}
	}

	if fallbackPath == "" {
		return "", fmt.Errorf("epub: container.xml rootfile has empty full-path: %w", ErrInvalidEPub)
	}
	return fallbackPath, nil
}

// marshalXML renders v as an indented XML document with a UTF-8 declaration.
// encoding/xml escapes &, <, >, " and ' in both text and attribute values.
func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("epub: marshal %T: %w", v, err)
	}
	out := make([]byte, 0, len(xmlDeclaration)+len(body)+1)
	out = append(out, xmlDeclaration...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
