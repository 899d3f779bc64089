package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"stoicbot/config"
)

// ErrParse means the model response was not valid JSON.
var ErrParse = errors.New("generation response is not valid JSON")

// ErrSchema means the parsed response is missing a required field.
var ErrSchema = errors.New("generation response missing required field")

// QuotePayload is the content unit for reel-style formats (reel, flash,
// animated): a short aphorism with attribution and supporting copy.
type QuotePayload struct {
	Quote          string   `json:"quote"`
	Author         string   `json:"author"`
	Motivation     string   `json:"motivation"`
	Interpretation string   `json:"interpretation"`
	Insight        string   `json:"technical_insight"`
	Applications   []string `json:"practical_applications"`
	Mood           string   `json:"mood"`
	ImageCategory  string   `json:"image_category"`
}

var quoteRequired = []string{"quote", "author", "motivation", "interpretation", "mood"}

// IdeaPayload is the content unit for the carousel format: a numbered
// actionable idea broken into steps.
type IdeaPayload struct {
	Number        int      `json:"idea_number"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Steps         []string `json:"steps"`
	KickoffPrompt string   `json:"kickoff_prompt"`
	Hook          string   `json:"hook"`
	Hashtags      []string `json:"hashtags"`
}

var ideaRequired = []string{"title", "summary", "steps", "kickoff_prompt", "hook"}

// ParseQuote decodes and validates a model response for the quote variant.
func ParseQuote(raw string) (*QuotePayload, error) {
	if err := checkRequired(raw, quoteRequired); err != nil {
		return nil, err
	}
	var p QuotePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &p, nil
}

// ParseIdea decodes and validates a model response for the idea variant.
func ParseIdea(raw string) (*IdeaPayload, error) {
	if err := checkRequired(raw, ideaRequired); err != nil {
		return nil, err
	}
	var p IdeaPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("%w: steps is empty", ErrSchema)
	}
	return &p, nil
}

// checkRequired verifies every required key is present and non-null before
// any struct is populated, so callers never see a partial payload.
func checkRequired(raw string, fields []string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	for _, f := range fields {
		v, ok := obj[f]
		if !ok || string(v) == "null" {
			return fmt.Errorf("%w: %s", ErrSchema, f)
		}
	}
	return nil
}

// Caption builds the post caption for a quote payload.
func (p *QuotePayload) Caption(hashtags []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%q\n— %s\n\n", p.Quote, p.Author)
	if p.Motivation != "" {
		b.WriteString(p.Motivation)
		b.WriteString("\n\n")
	}
	if p.Interpretation != "" {
		b.WriteString(p.Interpretation)
		b.WriteString("\n\n")
	}
	if p.Insight != "" {
		b.WriteString(p.Insight)
		b.WriteString("\n\n")
	}
	if len(p.Applications) > 0 {
		b.WriteString("Where to start:\n")
		for _, a := range p.Applications {
			fmt.Fprintf(&b, "• %s\n", a)
		}
		b.WriteString("\n")
	}
	b.WriteString(joinHashtags(hashtags))

	return clampCaption(b.String())
}

// Caption builds the carousel caption, falling back to a shortened layout
// when the full kickoff prompt would overflow the platform limit.
func (p *IdeaPayload) Caption(hashtags []string) string {
	tags := p.Hashtags
	if len(tags) == 0 {
		tags = hashtags
	}

	full := p.captionWith(p.KickoffPrompt, "Copy the prompt above to get started.", tags)
	if utf8.RuneCountInString(full) <= config.CaptionMaxLength {
		return full
	}

	const marker = "... (full prompt in bio)"
	overflow := utf8.RuneCountInString(full) - config.CaptionMaxLength + len(marker)
	promptRunes := []rune(p.KickoffPrompt)
	prompt := "Full prompt in bio."
	if overflow < len(promptRunes) {
		prompt = string(promptRunes[:len(promptRunes)-overflow]) + marker
	}
	return clampCaption(p.captionWith(prompt, "Full prompt in link in bio!", tags))
}

func (p *IdeaPayload) captionWith(prompt, outro string, tags []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "IDEA #%d: %s\n\n", p.Number, p.Title)
	if p.Hook != "" {
		b.WriteString(p.Hook)
		b.WriteString("\n\n")
	}
	if p.Summary != "" {
		b.WriteString(p.Summary)
		b.WriteString("\n\n")
	}
	b.WriteString("---\n\nYOUR KICKOFF PROMPT:\n\n")
	fmt.Fprintf(&b, "%q\n\n---\n\n%s\n\n", prompt, outro)
	b.WriteString(joinHashtags(tags))

	return b.String()
}

func joinHashtags(tags []string) string {
	if len(tags) > config.HashtagLimit {
		tags = tags[:config.HashtagLimit]
	}
	return strings.Join(tags, " ")
}

// clampCaption enforces the platform limit, which counts characters, so the
// cut lands on a rune boundary rather than mid-sequence.
func clampCaption(s string) string {
	runes := []rune(s)
	if len(runes) <= config.CaptionMaxLength {
		return s
	}
	return string(runes[:config.CaptionMaxLength-3]) + "..."
}
