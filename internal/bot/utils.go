package bot

import (
	"strings"

	"github.com/keepmind9/shelfbot/pkg/constants"
)

// variationSelector16 requests emoji presentation. Discord reports some
// emoji with it and some without, so names are compared without it.
const variationSelector16 = "\uFE0F"

// normalizeEmoji strips presentation selectors from a unicode emoji name
func normalizeEmoji(name string) string {
	return strings.ReplaceAll(name, variationSelector16, "")
}

// maskSecret masks sensitive information for logging
func maskSecret(s string) string {
	if len(s) <= constants.MinSecretLengthForMasking {
		return "***"
	}
	return s[:constants.SecretMaskPrefixLength] + "***" + s[len(s)-constants.SecretMaskSuffixLength:]
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return string(runes[:limit])
	}
	return string(runes[:limit-1]) + "…"
}
