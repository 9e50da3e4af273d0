package middleware

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/llm-translator-go/internal/config"
)

// charsPerToken is the rough ratio used to estimate request size.
const charsPerToken = 4

// Verdict is the outcome of validating captured text. The set of verdicts
// is closed: Valid, TooLong, TooManyTokensEstimate and ContainsBinaryData.
type Verdict interface {
	fmt.Stringer
	verdict()
}

type Valid struct{}

type TooLong struct {
	Length int
	Max    int
}

type TooManyTokensEstimate struct {
	Estimated int
	Max       int
}

type ContainsBinaryData struct{}

func (Valid) verdict()                 {}
func (TooLong) verdict()               {}
func (TooManyTokensEstimate) verdict() {}
func (ContainsBinaryData) verdict()    {}

func (Valid) String() string { return "valid" }

func (v TooLong) String() string {
	return fmt.Sprintf("text too long: %d characters, maximum %d", v.Length, v.Max)
}

func (v TooManyTokensEstimate) String() string {
	return fmt.Sprintf("too many tokens: about %d, maximum %d", v.Estimated, v.Max)
}

func (ContainsBinaryData) String() string { return "text contains binary data" }

// IsValid reports whether v is the Valid verdict.
func IsValid(v Verdict) bool {
	_, ok := v.(Valid)
	return ok
}

// Validate checks, in order, length, token estimate and control characters.
// Lengths are counted in characters, not bytes.
func Validate(text string, maxLength, maxTokensEstimate int) Verdict {
	length := utf8.RuneCountInString(text)
	if length > maxLength {
		return TooLong{Length: length, Max: maxLength}
	}

	if estimated := length / charsPerToken; estimated > maxTokensEstimate {
		return TooManyTokensEstimate{Estimated: estimated, Max: maxTokensEstimate}
	}

	if containsBinary(text) {
		return ContainsBinaryData{}
	}

	return Valid{}
}

func containsBinary(text string) bool {
	if !utf8.ValidString(text) {
		return true
	}
	for _, r := range text {
		switch r {
		case '\n', '\r', '\t':
			continue
		}
		if unicode.IsControl(r) {
			return true
		}
	}
	return false
}

// TextValidator applies the configured limits to captured text.
type TextValidator struct {
	maxLength         int
	maxTokensEstimate int
}

// NewTextValidator creates a validator from the limits section
func NewTextValidator(cfg *config.Config) *TextValidator {
	return &TextValidator{
		maxLength:         cfg.Limits.MaxTextLength,
		maxTokensEstimate: cfg.Limits.MaxTokensEstimate,
	}
}

func (v *TextValidator) Validate(text string) Verdict {
	return Validate(text, v.maxLength, v.maxTokensEstimate)
}

