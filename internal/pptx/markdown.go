package pptx

import (
	"fmt"
	"strings"
)

// Markdown renders the deck outline: the topic as a level-one heading, then a
// level-two heading and a bullet list per slide, separated by rules.
func Markdown(topic string, slides []Slide) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", escapeMarkdownLine(topic))
	for i, s := range slides {
		fmt.Fprintf(&b, "\n---\n\n## %d. %s\n\n", i+1, escapeMarkdownLine(s.Title))
		for _, point := range s.Content {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdownLine(strings.TrimSpace(point)))
		}
	}
	return b.String()
}

// escapeMarkdownLine keeps one logical line so a bullet cannot open a new block.
func escapeMarkdownLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
