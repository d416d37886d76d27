package transcript

import "regexp"

// UnknownLanguage is the source language recorded before any detection
// succeeds.
const UnknownLanguage = "unknown"

// Script detection by Unicode block. Checked in order; the Arabic and
// Cyrillic blocks get a second pass for characters specific to Urdu and
// Ukrainian respectively.
var (
	arabicBlock     = regexp.MustCompile(`[\x{0600}-\x{06FF}]`)
	urduMarks       = regexp.MustCompile(`[ٹڈڑںہے]`)
	devanagariBlock = regexp.MustCompile(`[\x{0900}-\x{097F}]`)
	hanBlock        = regexp.MustCompile(`[\x{4E00}-\x{9FFF}]`)
	kanaBlocks      = regexp.MustCompile(`[\x{3040}-\x{309F}\x{30A0}-\x{30FF}]`)
	cyrillicBlock   = regexp.MustCompile(`[\x{0400}-\x{04FF}]`)
	ukrainianMarks  = regexp.MustCompile(`[іїєґІЇЄҐ]`)
	turkishMarks    = regexp.MustCompile(`[ıİğĞşŞ]`)
	latinChars      = regexp.MustCompile(`[a-zA-ZáéíóúüñÁÉÍÓÚÜÑàèìòù]`)
)

// DetectLanguage guesses the ISO 639-1 language code of text from its script.
// It is a heuristic fallback for when no [SRC=code] tag is available, such as
// a user-edited transcript turn. Returns UnknownLanguage when no script
// matches.
func DetectLanguage(text string) string {
	if text == "" {
		return UnknownLanguage
	}

	if arabicBlock.MatchString(text) {
		if urduMarks.MatchString(text) {
			return "ur"
		}
		return "ar"
	}

	if devanagariBlock.MatchString(text) {
		return "hi"
	}

	if hanBlock.MatchString(text) {
		return "zh"
	}

	if kanaBlocks.MatchString(text) {
		return "ja"
	}

	if cyrillicBlock.MatchString(text) {
		if ukrainianMarks.MatchString(text) {
			return "uk"
		}
		return "ru"
	}

	if turkishMarks.MatchString(text) {
		return "tr"
	}

	// Latin script alone cannot distinguish western European languages;
	// Spanish is the most common non-English pairing in practice.
	if latinChars.MatchString(text) {
		return "es"
	}

	return UnknownLanguage
}
