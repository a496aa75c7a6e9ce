package generator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gnemet/DeckForge/internal/apperr"
)

const (
	MinSlides     = 1
	MaxSlides     = 20
	DefaultSlides = 5
)

// Input is one submission. It is never persisted.
type Input struct {
	Topic      string
	SlideCount int
	KeyPoints  string
	Credential string
}

// Validate requires a non-blank topic and credential.
func Validate(in Input) error {
	var missing []string
	if strings.TrimSpace(in.Topic) == "" {
		missing = append(missing, "topic")
	}
	if strings.TrimSpace(in.Credential) == "" {
		missing = append(missing, "api_key")
	}
	if len(missing) > 0 {
		appErr := apperr.Validation(apperr.MsgRequiredFields)
		appErr.Err = fmt.Errorf("missing %s", strings.Join(missing, ", "))
		return appErr
	}
	return nil
}

func ClampSlideCount(n int) int {
	if n < MinSlides {
		return MinSlides
	}
	if n > MaxSlides {
		return MaxSlides
	}
	return n
}

// ParseSlideCount reads a form value. Blank means DefaultSlides; anything that
// is not an integer is a validation error.
func ParseSlideCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSlides, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, SlideCountError(err)
	}
	return ClampSlideCount(n), nil
}

// SlideCountError reports a slide count that is not a whole number.
func SlideCountError(err error) error {
	return apperr.Wrap(err, apperr.CodeValidation, apperr.MsgMissingInformation).
		WithDetail(fmt.Sprintf("Number of slides must be a whole number between %d and %d", MinSlides, MaxSlides))
}
