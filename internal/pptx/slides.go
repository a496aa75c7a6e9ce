package pptx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSlides is returned when model output is not a JSON array of slide objects.
var ErrInvalidSlides = errors.New("response is not a JSON array of slides")

// Slide is one content slide as returned by the model.
type Slide struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

type rawSlide struct {
	Title   *string   `json:"title"`
	Content *[]string `json:"content"`
}

// ParseSlides decodes model output into slides, validating every entry.
// A single surrounding markdown code fence is tolerated.
func ParseSlides(raw string) ([]Slide, error) {
	text := stripCodeFence(raw)

	var entries []rawSlide
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSlides, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrInvalidSlides)
	}

	slides := make([]Slide, 0, len(entries))
	for i, e := range entries {
		if e.Title == nil || strings.TrimSpace(*e.Title) == "" {
			return nil, fmt.Errorf("%w: slide %d has no title", ErrInvalidSlides, i+1)
		}
		if e.Content == nil {
			return nil, fmt.Errorf("%w: slide %d has no content array", ErrInvalidSlides, i+1)
		}
		slides = append(slides, Slide{
			Title:   strings.TrimSpace(*e.Title),
			Content: *e.Content,
		})
	}
	return slides, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string, e.g. "json"
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
