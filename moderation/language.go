package moderation

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DetectLanguage returns the ISO 639-1 code of text, empty when nothing can be guessed.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	info := whatlanggo.Detect(text)
	return info.Lang.Iso6391()
}
