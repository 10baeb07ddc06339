package screenreader

import (
	"strings"
	"unicode"

	"github.com/acarl005/stripansi"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// normalizer maps a screen reader's phrasing onto a common vocabulary so one
// expected announcement can be checked against every backend.
type normalizer struct {
	synonyms map[string]string
}

// Vocabulary shared by every kind. Phrases are matched longest first.
var commonSynonyms = map[string]string{
	"edit text":  "edit",
	"text field": "edit",
	"combobox":   "combo box",
}

var kindSynonyms = map[types.ScreenReaderKind]map[string]string{
	types.ScreenReaderNVDA: {
		"clickable":   "",
		"not checked": "unchecked",
	},
	types.ScreenReaderJAWS: {
		"grayed":                  "unavailable",
		"type in text":            "",
		"to activate press enter": "",
	},
	types.ScreenReaderVoiceOver: {
		"dimmed":            "unavailable",
		"search text field": "edit",
		"pop up button":     "combo box",
		"visited":           "",
	},
}

func normalizerFor(kind types.ScreenReaderKind) *normalizer {
	synonyms := make(map[string]string, len(commonSynonyms)+len(kindSynonyms[kind]))
	for k, v := range commonSynonyms {
		synonyms[k] = v
	}
	for k, v := range kindSynonyms[kind] {
		synonyms[k] = v
	}
	return &normalizer{synonyms: synonyms}
}

// normalize lowercases, strips escapes and punctuation, collapses whitespace
// and rewrites vocabulary phrases.
func (n *normalizer) normalize(s string) string {
	s = strings.ToLower(stripansi.Strip(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		replaced := false
		// longest phrases first; no synonym is longer than four words
		for span := min(4, len(words)-i); span > 0; span-- {
			phrase := strings.Join(words[i:i+span], " ")
			if repl, ok := n.synonyms[phrase]; ok {
				if repl != "" {
					out = append(out, repl)
				}
				i += span
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, words[i])
			i++
		}
	}
	return strings.Join(out, " ")
}

// contains reports whether expected appears in actual on word boundaries
func (n *normalizer) contains(actual, expected string) bool {
	if expected == "" {
		return true
	}
	return strings.Contains(" "+actual+" ", " "+expected+" ")
}
