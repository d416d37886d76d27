// Package prompt builds the system instructions sent to the translation model
// and holds the supported language and interpretation context registries.
//
// The instruction encodes two machine-readable conventions the transcript
// parser relies on: every model turn starts with a [SRC=code] tag naming the
// detected input language, and transliterated output separates the native
// script from its romanization with a "====" delimiter.
package prompt

import (
	"fmt"
	"strings"

	"github.com/juanan28s/flextranslator/pkg/provider/live"
)

// Context is an interpretation persona that shifts the model's linguistic
// style, from casual slang to formal legal precision.
type Context struct {
	ID          string
	Label       string
	Instruction string
}

// Contexts is the master list of interpretation personas.
var Contexts = []Context{
	{
		ID:          "general",
		Label:       "General Conversation (Default)",
		Instruction: "Translate naturally for a general casual conversation.",
	},
	{
		ID:          "professional",
		Label:       "General Professional",
		Instruction: "Maintain a professional, polite, and business-appropriate tone. Avoid slang and overly casual expressions.",
	},
	{
		ID:          "legal",
		Label:       "Legal",
		Instruction: "Use precise legal terminology. Maintain formal sentence structures. Do not simplify terms. Ensure accuracy for contracts and legal proceedings.",
	},
	{
		ID:          "medical",
		Label:       "Medical",
		Instruction: "Use accurate medical terminology. Ensure clinical precision. Maintain a professional doctor-patient tone.",
	},
	{
		ID:          "financial",
		Label:       "Financial",
		Instruction: "Use specific financial and economic terminology. Ensure accuracy with numbers, currency terms, and market jargon.",
	},
	{
		ID:          "diplomatic",
		Label:       "Diplomatic",
		Instruction: "Use highly formal, diplomatic language. Prioritize politeness, indirectness where appropriate, and respect for protocol.",
	},
	{
		ID:          "technical",
		Label:       "Technical / IT",
		Instruction: "Use precise technical jargon appropriate for software engineering, IT, and engineering contexts.",
	},
	{
		ID:          "academic",
		Label:       "Academic",
		Instruction: "Use formal academic language. Focus on intellectual precision, complex sentence structures, and scholarly tone.",
	},
	{
		ID:          "millennial",
		Label:       "Millennial Colloquial",
		Instruction: "Use casual, conversational language typical of Millennials. It is acceptable to use common slang terms and relaxed grammar.",
	},
	{
		ID:          "genz",
		Label:       "Gen Z Colloquial",
		Instruction: "Use contemporary internet slang and Gen Z vernacular where appropriate to match the vibe. Keep it very casual and expressive.",
	},
	{
		ID:          "romantic",
		Label:       "Romantic",
		Instruction: "Use affectionate, poetic, and romantic language. Focus on emotional resonance and intimacy.",
	},
}

// ContextByID returns the context with the given ID, or false if unknown.
func ContextByID(id string) (Context, bool) {
	for _, c := range Contexts {
		if c.ID == id {
			return c, true
		}
	}
	return Context{}, false
}

// SupportedLanguages lists the languages available for translation sessions,
// keyed by ISO 639-1 code.
var SupportedLanguages = []live.Language{
	{Code: "ar", Name: "Arabic"},
	{Code: "zh", Name: "Chinese (Mandarin)"},
	{Code: "en", Name: "English"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "hi", Name: "Hindi"},
	{Code: "it", Name: "Italian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "pl", Name: "Polish"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ru", Name: "Russian"},
	{Code: "es", Name: "Spanish"},
	{Code: "tr", Name: "Turkish"},
	{Code: "uk", Name: "Ukrainian"},
	{Code: "ur", Name: "Urdu"},
}

// LanguageByCode returns the supported language with the given ISO code, or
// false if unknown.
func LanguageByCode(code string) (live.Language, bool) {
	for _, l := range SupportedLanguages {
		if l.Code == code {
			return l, true
		}
	}
	return live.Language{}, false
}

// transliterationDirective instructs the model to append a romanization after
// the "====" delimiter. Currently only Urdu output requests it.
func transliterationDirective(target live.Language) string {
	return fmt.Sprintf(`
   - If output is %s, REQUIRED FORMAT: [SCRIPT]====[ROMANIZED TEXT]
   - Example: "شکریہ====Shukriya"
  `, target.Name)
}

// SystemInstruction builds the interpreter system prompt for a bidirectional
// session between langA and langB using the tone of the given context ID. An
// unknown context ID falls back to a neutral tone.
func SystemInstruction(langA, langB live.Language, contextID string) string {
	tone := "Translate naturally."
	if c, ok := ContextByID(contextID); ok {
		tone = c.Instruction
	}

	var modeA, modeB string
	if langB.Code == "ur" {
		modeA = transliterationDirective(langB)
	}
	if langA.Code == "ur" {
		modeB = transliterationDirective(langA)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional UN interpreter translating between %s and %s.\n\n", langA.Name, langB.Name)
	fmt.Fprintf(&b, "CONTEXT/TONE INSTRUCTION: %s\n\n", tone)
	fmt.Fprintf(&b, "MODE 1: %s INPUT detected\n", langA.Name)
	fmt.Fprintf(&b, "   - Translate to %s.\n", langB.Name)
	fmt.Fprintf(&b, "   - START OUTPUT WITH TAG: [SRC=%s]\n", langA.Code)
	if modeA != "" {
		fmt.Fprintf(&b, "   %s\n", modeA)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "MODE 2: %s INPUT detected\n", langB.Name)
	fmt.Fprintf(&b, "   - Translate to %s.\n", langA.Name)
	fmt.Fprintf(&b, "   - START OUTPUT WITH TAG: [SRC=%s]\n", langB.Code)
	if modeB != "" {
		fmt.Fprintf(&b, "   %s\n", modeB)
	}
	b.WriteString("\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Do not speak the tag [SRC=...].\n")
	b.WriteString("- Do not speak the Romanized part after the delimiter, just type it.\n")
	b.WriteString("- Maintain strict formatting for machine parsing.\n")
	fmt.Fprintf(&b, "- If you cannot detect the language clearly, default to translating to %s if input looks like %s, and vice-versa.\n", langA.Name, langB.Name)
	return b.String()
}
