package ai

import (
	"fmt"
	"strings"
)

// BuildPrompt asks the model for a JSON array of {title, content[]} slides.
// The key-points block is omitted when keyPoints is blank.
func BuildPrompt(topic string, slideCount int, keyPoints string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a presentation about \"%s\" with %d slides.", topic, slideCount)

	if points := strings.TrimSpace(keyPoints); points != "" {
		b.WriteString("\nInclude these key points:\n")
		b.WriteString(points)
	}

	b.WriteString(`

Format the response as a JSON array where each object represents a slide with:
- title: The slide title
- content: Array of bullet points for the slide

Respond with the JSON array only.
Make it engaging and informative.`)
	return b.String()
}
