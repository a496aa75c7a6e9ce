package pptx

import "strings"

const (
	Extension       = ".pptx"
	MIMEType        = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	defaultFileStem = "presentation"
)

// DeckFilename keeps only the ASCII letters and digits of topic and appends the
// deck extension, e.g. "Q1 Results!" -> "Q1Results.pptx".
func DeckFilename(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	stem := b.String()
	if stem == "" {
		stem = defaultFileStem
	}
	return stem + Extension
}
