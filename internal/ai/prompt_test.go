package ai

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestBuildPromptWithoutKeyPoints(t *testing.T) {
	p := BuildPrompt("Solar power", 4, "   \n ")
	assert.True(t, strings.HasPrefix(p, `Create a presentation about "Solar power" with 4 slides.`))
	assert.NotContains(t, p, "Include these key points")
	assert.Contains(t, p, "JSON array")
	assert.Contains(t, p, "- title: The slide title")
	assert.Contains(t, p, "- content: Array of bullet points for the slide")
}

func TestBuildPromptWithKeyPoints(t *testing.T) {
	p := BuildPrompt("Solar power", 4, "cost\nefficiency")
	assert.Contains(t, p, "Include these key points:\ncost\nefficiency")
}

func TestBuildPromptProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		topic := rapid.String().Draw(t, "topic")
		n := rapid.IntRange(1, 20).Draw(t, "slides")
		points := rapid.String().Draw(t, "points")

		p := BuildPrompt(topic, n, points)
		if !strings.Contains(p, fmt.Sprintf("with %d slides.", n)) {
			t.Fatalf("prompt lacks slide count %d: %q", n, p)
		}
		hasBlock := strings.Contains(p, "Include these key points:")
		if hasBlock != (strings.TrimSpace(points) != "") {
			t.Fatalf("key points block present=%v for %q", hasBlock, points)
		}
	})
}

func TestBuildPromptKeepsTopicVerbatim(t *testing.T) {
	p := BuildPrompt("Q1 \"wins\"\nand losses", 3, "")
	assert.True(t, strings.HasPrefix(p, "Create a presentation about \"Q1 \"wins\"\nand losses\" with 3 slides."))
	assert.NotContains(t, p, `\n`)
}
