package epub

import (
	"strings"

	"github.com/google/uuid"
)

// UnknownAuthor is written as dc:creator when no author is given.
const UnknownAuthor = "Unknown Author"

// DefaultLanguage is written as dc:language when no language is given.
const DefaultLanguage = "en"

// withDefaults returns md with surrounding whitespace trimmed and empty
// fields replaced: author → UnknownAuthor, language → DefaultLanguage,
// identifier → a random urn:uuid, title → "Untitled".
func (md Metadata) withDefaults() Metadata {
	md.Title = strings.TrimSpace(md.Title)
	md.Author = strings.TrimSpace(md.Author)
	md.Language = strings.TrimSpace(md.Language)
	md.Identifier = strings.TrimSpace(md.Identifier)

	if md.Title == "" {
		md.Title = "Untitled"
	}
	if md.Author == "" {
		md.Author = UnknownAuthor
	}
	if md.Language == "" {
		md.Language = DefaultLanguage
	}
	if md.Identifier == "" {
		md.Identifier = NewIdentifier()
	}
	return md
}

// NewIdentifier returns a fresh book identifier of the form
// "urn:uuid:xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx".
func NewIdentifier() string {
	return "urn:uuid:" + uuid.NewString()
}

// extractMetadata converts read-back OPF metadata into Metadata, taking the
// first non-empty value of each element.
func extractMetadata(opf *opfPackage) Metadata {
	om := &opf.Metadata
	md := Metadata{
		Title:    firstValue(om.Titles),
		Author:   firstValue(om.Creators),
		Language: firstValue(om.Languages),
	}
	for _, id := range om.Identifiers {
		if id.ID == opf.UniqueIdentifier || md.Identifier == "" {
			md.Identifier = strings.TrimSpace(id.Value)
		}
	}
	return md
}

func firstValue(elems []opfDCElement) string {
	for _, e := range elems {
		if v := strings.TrimSpace(e.Value); v != "" {
			return v
		}
	}
	return ""
}
