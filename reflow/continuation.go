package reflow

import (
	"regexp"
	"strings"
)

// Separators placed between the accumulated text and an appended page.
const (
	SpaceSeparator     = " "
	ParagraphSeparator = "\n\n"
)

// contextLen is the number of characters inspected on each side of a join.
const contextLen = 50

// quotes is the character class of straight and typographic quote marks.
const quotes = `['"“”‘’‚„‹›«»]`

var (
	trailingAbbreviation = regexp.MustCompile(`(?i)\b(dr|mr|mrs|ms|prof|vs|etc|inc|ltd|corp|co|st|ave|blvd|rd|jr|sr|phd|md|ba|ma|bs|am|pm|vol|no|pg|ch|sec|min|max|approx|est|fig|ref|ed|eds|trans|repr|orig|pub|univ|dept|govt|assoc|org|admin|tech|info|bio|geo|psych|econ|hist|lit|math|sci|eng|med|law|bus|art|mus|phil|relig|sociol|anthro|archaeol|astron|biol|bot|chem|comp|ecol|geol|meteorol|oceanol|phys|stat|zool)\.\s*$`)

	trailingSentenceEnd = regexp.MustCompile(`[.!?:;]` + quotes + `?\s*$|[.!?:;]\s*` + quotes + `\s*$|\.{3,}\s*$`)

	trailingContinuation = regexp.MustCompile(`[,\-—…]` + quotes + `?\s*$|[,\-—…]\s*` + quotes + `\s*$`)

	leadingLower = regexp.MustCompile(`^[a-z]`)

	leadingContinuationWord = regexp.MustCompile(`(?i)^(and|but|or|so|yet|for|nor|the|a|an|he|she|it|they|we|you|i|his|her|its|their|our|your|my|this|that|these|those|then|now|here|there|when|where|who|what|why|how|however|therefore|thus|meanwhile|furthermore|moreover|nevertheless|nonetheless|otherwise|likewise|similarly|consequently|accordingly|subsequently|eventually|finally|initially|originally|previously|recently|currently|presently|immediately|suddenly|gradually|slowly|quickly|briefly|shortly|soon|later|earlier|before|after|during|while|since|until|unless|although|though|whereas|because|if|as|than|like|unlike|despite|regarding|concerning|including|excluding|except|besides|among|between|within|without|beyond|beneath|above|below|across|through|throughout|around|toward|towards|against|along|beside|behind|ahead|inside|outside|nearby|far|close|near)\b`)

	leadingClosing = regexp.MustCompile(`^(` + quotes + `|[)\]}>])`)

	trailingWord = regexp.MustCompile(`\w` + quotes + `?\s*$`)

	leadingUpper = regexp.MustCompile(`^[A-Z]`)
)

// ContinuesSentence reports whether next, appended after prev, continues
// the same sentence (joined with a space) rather than starting a new
// paragraph. Only the last and first 50 characters of the trimmed inputs
// are inspected. The first matching rule wins:
//
//  1. prev ends with a known abbreviation and a period: continue
//  2. prev ends with . ! ? : ; or "...", optionally quoted: break
//  3. prev ends with a comma, dash or "…", optionally quoted: continue
//  4. next starts with a lowercase letter: continue
//  5. next starts with a connective word (and, the, however, ...): continue
//  6. next starts with a closing quote or bracket: continue
//  7. prev does not end with a word character: break
//  8. next starts with an uppercase letter: break
//  9. otherwise: continue
//
// Empty input on either side is a break.
func ContinuesSentence(prev, next string) bool {
	prevEnd := strings.TrimSpace(lastRunes(strings.TrimSpace(prev), contextLen))
	nextStart := strings.TrimSpace(firstRunes(strings.TrimSpace(next), contextLen))
	if prevEnd == "" || nextStart == "" {
		return false
	}

	switch {
	case trailingAbbreviation.MatchString(prevEnd):
		return true
	case trailingSentenceEnd.MatchString(prevEnd):
		return false
	case trailingContinuation.MatchString(prevEnd):
		return true
	case leadingLower.MatchString(nextStart):
		return true
	case leadingContinuationWord.MatchString(nextStart):
		return true
	case leadingClosing.MatchString(nextStart):
		return true
	case !trailingWord.MatchString(prevEnd):
		return false
	case leadingUpper.MatchString(nextStart):
		return false
	}
	return true
}

// Separator returns the string placed between prev and next.
func Separator(prev, next string) string {
	if ContinuesSentence(prev, next) {
		return SpaceSeparator
	}
	return ParagraphSeparator
}

// Join appends next to prev using Separator. An empty side is returned
// without a separator.
func Join(prev, next string) string {
	switch {
	case strings.TrimSpace(next) == "":
		return prev
	case strings.TrimSpace(prev) == "":
		return next
	}
	return prev + Separator(prev, next) + next
}

func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func firstRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
