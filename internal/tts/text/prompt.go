// Package text prepares user input for speech synthesis prompts.
package text

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultPromptPrefix instructs the model to read the text aloud verbatim.
const DefaultPromptPrefix = "Přečti nahlas: "

const (
	whitespaceRegexPattern = `\s+`
	emDash                 = "—"
	enDash                 = "–"
	figureDash             = "‒"
	ellipsis               = "..."
	ellipsisChar           = "…"
)

// Preprocessor normalizes text before it is embedded in a synthesis prompt.
type Preprocessor struct {
	whitespacePattern *regexp.Regexp
	punctuation       *strings.Replacer
	prefix            string
}

// NewPreprocessor creates a preprocessor that prepends prefix to every prompt.
// An empty prefix selects DefaultPromptPrefix.
func NewPreprocessor(prefix string) *Preprocessor {
	if prefix == "" {
		prefix = DefaultPromptPrefix
	}

	return &Preprocessor{
		whitespacePattern: regexp.MustCompile(whitespaceRegexPattern),
		punctuation: strings.NewReplacer(
			emDash, "-",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			"“", `"`, "”", `"`, "„", `"`,
			"‘", "'", "’", "'", "‚", "'",
		),
		prefix: prefix,
	}
}

// IsBlank reports whether text has no speakable content.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// PreprocessText strips control characters, folds typographic punctuation and
// collapses runs of whitespace. Diacritics are preserved.
func (p *Preprocessor) PreprocessText(text string) string {
	if text == "" {
		return text
	}

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}

		return r
	}, text)

	cleaned = p.punctuation.Replace(cleaned)
	cleaned = p.whitespacePattern.ReplaceAllString(cleaned, " ")

	return strings.TrimSpace(cleaned)
}

// BuildPrompt returns the prompt sent to the model for text.
func (p *Preprocessor) BuildPrompt(text string) string {
	return p.prefix + p.PreprocessText(text)
}
