package transcript

import (
	"regexp"
	"strings"
)

// srcTagPattern matches the [SRC=code] language tag the model prepends to
// every translated turn.
var srcTagPattern = regexp.MustCompile(`\[SRC=([a-z]+)\]`)

// translitDelimiter separates the native-script translation from its
// romanization in transliterated output.
const translitDelimiter = "===="

// Parsed is the structured form of one raw translation string.
type Parsed struct {
	// Translation is the primary translated text with tags stripped.
	Translation string

	// Transliteration is the romanized segment after the delimiter, empty
	// when the output carries none.
	Transliteration string

	// SourceLang is the ISO code from the first [SRC=code] tag, or empty
	// when no tag has appeared yet.
	SourceLang string
}

// ParseStreaming parses a partial raw translation accumulated mid-turn.
//
// The tag can arrive split across chunks ("[SRC=f" then "r]Bonjour"), so the
// caller re-parses the full accumulated raw text after every append rather
// than parsing chunks individually. Only leading whitespace is trimmed; the
// tail of a partial string is still growing and trailing spaces may be
// significant.
func ParseStreaming(raw string) Parsed {
	var p Parsed
	if m := srcTagPattern.FindStringSubmatch(raw); m != nil {
		p.SourceLang = m[1]
	}

	clean := strings.TrimLeft(srcTagPattern.ReplaceAllString(raw, ""), " \t\n")
	parts := strings.SplitN(clean, translitDelimiter, 2)
	p.Translation = parts[0]
	if len(parts) > 1 {
		p.Transliteration = parts[1]
	}
	return p
}

// ParseFinal parses a complete raw translation, such as a one-shot response
// or a finished turn. Both segments are fully trimmed.
func ParseFinal(raw string) Parsed {
	var p Parsed
	if m := srcTagPattern.FindStringSubmatch(raw); m != nil {
		p.SourceLang = m[1]
	}

	clean := strings.TrimSpace(srcTagPattern.ReplaceAllString(raw, ""))
	parts := strings.SplitN(clean, translitDelimiter, 2)
	p.Translation = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		p.Transliteration = strings.TrimSpace(parts[1])
	}
	return p
}
