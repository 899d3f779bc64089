package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	cohere "github.com/cohere-ai/cohere-go/v2"

	"stoicbot/config"
)

const validQuoteJSON = `{
	"quote": "We suffer more often in imagination than in reality.",
	"author": "Seneca",
	"motivation": "Ship the thing you keep rehearsing failure over.",
	"interpretation": "Most of the pain is anticipatory. The work itself is smaller than the dread.",
	"technical_insight": "Prototype before you architect.",
	"practical_applications": ["Write the first test", "Timebox the spike to one hour"],
	"mood": "stoic",
	"image_category": "statues"
}`

func fakeChat(responses ...string) (chatFunc, *int) {
	calls := new(int)
	return func(ctx context.Context, req *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error) {
		i := *calls
		*calls++
		if i >= len(responses) {
			i = len(responses) - 1
		}
		return &cohere.NonStreamedChatResponse{Text: responses[i]}, nil
	}, calls
}

func TestGenerateQuoteParsesValidResponse(t *testing.T) {
	chat, _ := fakeChat(validQuoteJSON)
	g := newGeneratorWith(GeneratorConfig{Model: "command-r"}, chat)

	p, err := g.GenerateQuote(context.Background(), "")
	if err != nil {
		t.Fatalf("GenerateQuote: %v", err)
	}
	if p.Author != "Seneca" {
		t.Fatalf("author = %q; want Seneca", p.Author)
	}
	if p.Mood != "stoic" {
		t.Fatalf("mood = %q; want stoic", p.Mood)
	}
}

func TestGenerateQuoteStripsCodeFences(t *testing.T) {
	chat, _ := fakeChat("```json\n" + validQuoteJSON + "\n```")
	g := newGeneratorWith(GeneratorConfig{}, chat)

	if _, err := g.GenerateQuote(context.Background(), ""); err != nil {
		t.Fatalf("GenerateQuote: %v", err)
	}
}

func TestGenerateQuoteRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing quote", `{"author":"Seneca","motivation":"m","interpretation":"i","mood":"stoic"}`},
		{"missing author", `{"quote":"q","motivation":"m","interpretation":"i","mood":"stoic"}`},
		{"missing mood", `{"quote":"q","author":"a","motivation":"m","interpretation":"i"}`},
		{"null field", `{"quote":null,"author":"a","motivation":"m","interpretation":"i","mood":"stoic"}`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			chat, calls := fakeChat(c.body)
			g := newGeneratorWith(GeneratorConfig{}, chat)

			_, err := g.GenerateQuote(context.Background(), "")
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("err = %v; want ErrSchema", err)
			}
			if *calls != 1 {
				t.Fatalf("made %d completions; a rejected response must fail without retrying", *calls)
			}
		})
	}
}

func TestGenerateQuoteFailsOnFirstBadCompletion(t *testing.T) {
	// A valid response is queued behind the bad one; it must never be asked
	// for. Retrying is the caller's decision, at whole-run granularity.
	chat, calls := fakeChat("not json at all", validQuoteJSON)
	g := newGeneratorWith(GeneratorConfig{}, chat)

	_, err := g.GenerateQuote(context.Background(), "")
	if !errors.Is(err, ErrParse) {
		t.Fatalf("err = %v; want ErrParse", err)
	}
	if *calls != 1 {
		t.Fatalf("made %d completions; want exactly 1", *calls)
	}
}

func TestGenerateQuoteSurfacesChatError(t *testing.T) {
	boom := errors.New("upstream 503")
	g := newGeneratorWith(GeneratorConfig{}, func(ctx context.Context, req *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error) {
		return nil, boom
	})

	if _, err := g.GenerateQuote(context.Background(), ""); !errors.Is(err, boom) {
		t.Fatalf("err = %v; want wrapped upstream error", err)
	}
}

func TestGenerateIdeaValidatesSteps(t *testing.T) {
	empty := `{"title":"t","summary":"s","steps":[],"kickoff_prompt":"k","hook":"h"}`
	chat, calls := fakeChat(empty)
	g := newGeneratorWith(GeneratorConfig{}, chat)

	if _, err := g.GenerateIdea(context.Background(), 12); !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v; want ErrSchema for empty steps", err)
	}
	if *calls != 1 {
		t.Fatalf("made %d completions; want exactly 1", *calls)
	}
}

func TestGenerateIdeaBackfillsNumber(t *testing.T) {
	body := `{"title":"t","summary":"s","steps":["one"],"kickoff_prompt":"k","hook":"h"}`
	chat, _ := fakeChat(body)
	g := newGeneratorWith(GeneratorConfig{}, chat)

	p, err := g.GenerateIdea(context.Background(), 42)
	if err != nil {
		t.Fatalf("GenerateIdea: %v", err)
	}
	if p.Number != 42 {
		t.Fatalf("number = %d; want 42", p.Number)
	}
}

func TestQuoteCaptionLayout(t *testing.T) {
	p, err := ParseQuote(validQuoteJSON)
	if err != nil {
		t.Fatalf("ParseQuote: %v", err)
	}
	caption := p.Caption([]string{"#stoicism", "#discipline"})

	if !strings.Contains(caption, "— Seneca") {
		t.Fatalf("caption missing attribution:\n%s", caption)
	}
	if !strings.Contains(caption, "#stoicism #discipline") {
		t.Fatalf("caption missing hashtags:\n%s", caption)
	}
	if n := utf8.RuneCountInString(caption); n > config.CaptionMaxLength {
		t.Fatalf("caption is %d characters; limit %d", n, config.CaptionMaxLength)
	}
}

func TestQuoteCaptionTruncatesOnRuneBoundaries(t *testing.T) {
	// Multi-byte text throughout: em-dashes, bullets, and Cyrillic. A cut
	// measured in bytes would sever a rune and publish invalid UTF-8.
	p := &QuotePayload{
		Quote:        strings.Repeat("страдание воображаемое ", 40),
		Author:       "Сенека",
		Motivation:   strings.Repeat("— начните с малого • ", 40),
		Applications: []string{strings.Repeat("сначала — малое • ", 40)},
		Mood:         "stoic",
	}

	caption := p.Caption([]string{"#стоицизм"})
	if !utf8.ValidString(caption) {
		t.Fatalf("truncated caption is not valid UTF-8 (tail bytes: % x)", caption[len(caption)-8:])
	}
	if n := utf8.RuneCountInString(caption); n > config.CaptionMaxLength {
		t.Fatalf("caption is %d characters; limit %d", n, config.CaptionMaxLength)
	}
	if !strings.HasSuffix(caption, "...") {
		t.Fatal("oversized caption was not truncated")
	}
}

func TestIdeaCaptionShortensOversizedPrompt(t *testing.T) {
	p := &IdeaPayload{
		Number:        7,
		Title:         "Automated changelog writer",
		Summary:       "Sell changelog drafts to small SaaS teams.",
		Steps:         []string{"one", "two"},
		KickoffPrompt: strings.Repeat("write a changelog entry ", 200),
		Hook:          "Your release notes write themselves.",
		Hashtags:      []string{"#buildinpublic"},
	}

	caption := p.Caption(nil)
	if n := utf8.RuneCountInString(caption); n > config.CaptionMaxLength {
		t.Fatalf("caption is %d characters; limit %d", n, config.CaptionMaxLength)
	}
	if !strings.Contains(caption, "IDEA #7") {
		t.Fatalf("caption missing idea number:\n%s", caption)
	}
}

func TestIdeaCaptionShortensMultiBytePromptCleanly(t *testing.T) {
	p := &IdeaPayload{
		Number:        3,
		Title:         "Дневник дисциплины",
		Summary:       "Продавайте шаблоны самоанализа.",
		Steps:         []string{"один", "два"},
		KickoffPrompt: strings.Repeat("напиши запись дневника — коротко • ", 80),
		Hook:          "Привычка за 30 дней.",
	}

	caption := p.Caption([]string{"#стоицизм"})
	if !utf8.ValidString(caption) {
		t.Fatalf("shortened caption is not valid UTF-8 (tail bytes: % x)", caption[len(caption)-8:])
	}
	if n := utf8.RuneCountInString(caption); n > config.CaptionMaxLength {
		t.Fatalf("caption is %d characters; limit %d", n, config.CaptionMaxLength)
	}
	if !strings.Contains(caption, "(full prompt in bio)") {
		t.Fatalf("oversized prompt was not shortened:\n%s", caption)
	}
}

func TestCaptionHashtagCap(t *testing.T) {
	tags := make([]string, 15)
	for i := range tags {
		tags[i] = "#tag"
	}
	joined := joinHashtags(tags)
	if got := strings.Count(joined, "#"); got != config.HashtagLimit {
		t.Fatalf("kept %d hashtags; want %d", got, config.HashtagLimit)
	}
}
