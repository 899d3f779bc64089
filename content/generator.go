// Package content turns model completions into validated post payloads.
package content

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// chatFunc is the one model call the generator makes. Tests substitute a
// fake; production wires the Cohere chat endpoint.
type chatFunc func(ctx context.Context, req *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error)

// Generator produces post payloads from an LLM. A completion that fails to
// parse or validate fails the call; whether to retry is the caller's call,
// at whole-run granularity.
type Generator struct {
	chat        chatFunc
	model       string
	temperature float64
	maxTokens   int
	personas    []string
	rng         *rand.Rand
}

// GeneratorConfig holds the model settings for a Generator.
type GeneratorConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Personas    []string
}

// NewGenerator builds a Generator backed by the Cohere chat API.
func NewGenerator(cfg GeneratorConfig) *Generator {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	client := cohereclient.NewClient(
		cohereclient.WithToken(cfg.APIKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	g := newGeneratorWith(cfg, func(ctx context.Context, req *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error) {
		return client.Chat(ctx, req)
	})
	return g
}

func newGeneratorWith(cfg GeneratorConfig, chat chatFunc) *Generator {
	return &Generator{
		chat:        chat,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		personas:    cfg.Personas,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateQuote produces a validated quote payload. theme may be empty.
func (g *Generator) GenerateQuote(ctx context.Context, theme string) (*QuotePayload, error) {
	persona := "a classical Stoic philosopher"
	if len(g.personas) > 0 {
		persona = g.personas[g.rng.Intn(len(g.personas))]
	}

	raw, err := g.complete(ctx, quotePreamble, quotePrompt(persona, theme))
	if err != nil {
		return nil, err
	}
	payload, err := ParseQuote(raw)
	if err != nil {
		return nil, fmt.Errorf("quote generation: %w", err)
	}
	return payload, nil
}

// GenerateIdea produces a validated idea payload numbered for the series.
func (g *Generator) GenerateIdea(ctx context.Context, number int) (*IdeaPayload, error) {
	raw, err := g.complete(ctx, ideaPreamble, ideaPrompt(number))
	if err != nil {
		return nil, err
	}
	payload, err := ParseIdea(raw)
	if err != nil {
		return nil, fmt.Errorf("idea generation: %w", err)
	}
	if payload.Number == 0 {
		payload.Number = number
	}
	return payload, nil
}

func (g *Generator) complete(ctx context.Context, preamble, message string) (string, error) {
	req := &cohere.ChatRequest{
		Message:  message,
		Preamble: &preamble,
		ResponseFormat: &cohere.ResponseFormat{
			Type:       "json_object",
			JsonObject: &cohere.JsonResponseFormat{},
		},
	}
	if g.model != "" {
		req.Model = &g.model
	}
	if g.temperature > 0 {
		req.Temperature = &g.temperature
	}
	if g.maxTokens > 0 {
		req.MaxTokens = &g.maxTokens
	}

	resp, err := g.chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("cohere chat returned empty response")
	}
	return stripFences(resp.Text), nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
