package policy

import (
	"regexp"
)

// Transcripts leave our infrastructure when they are sent to LLM providers.
// Contact details and card numbers spoken aloud in a meeting are masked
// before any prompt is built.
var (
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	phonePattern = regexp.MustCompile(`(?:\+?\d[\d()\-\s.]{7,}\d)`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`)
)

func MaskTranscript(text string) string {
	masked := emailPattern.ReplaceAllStringFunc(text, func(_ string) string {
		return "[email_redacted]"
	})
	masked = phonePattern.ReplaceAllStringFunc(masked, func(_ string) string {
		return "[phone_redacted]"
	})
	masked = cardPattern.ReplaceAllStringFunc(masked, maskCardNumber)
	return masked
}

func maskCardNumber(value string) string {
	digits := make([]rune, 0, len(value))
	for _, char := range value {
		if char >= '0' && char <= '9' {
			digits = append(digits, char)
		}
	}
	if len(digits) < 8 {
		return "[card_redacted]"
	}

	last4 := string(digits[len(digits)-4:])
	return "**** **** **** " + last4
}
