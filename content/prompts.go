package content

import (
	"fmt"
	"strings"
)

const quotePreamble = `You are a curator of timeless wisdom for ambitious builders and
entrepreneurs. You surface quotes from classical thinkers and frame them for a
modern audience working on startups, engineering, and self-mastery. You always
answer with a single JSON object and nothing else.`

const ideaPreamble = `You are a startup idea researcher. You produce one concrete,
actionable business idea that a solo founder could start this week using AI
tooling. You always answer with a single JSON object and nothing else.`

// quotePrompt asks for one quote payload. persona narrows the source thinker
// and theme optionally steers the topic.
func quotePrompt(persona, theme string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give me one real, verifiable quote from %s.\n\n", persona)
	if theme != "" {
		fmt.Fprintf(&b, "The quote should relate to this theme: %s.\n\n", theme)
	}
	b.WriteString(`Return a JSON object with exactly these fields:
- "quote": the quote text, under 200 characters
- "author": who said it
- "motivation": one sentence connecting it to building something today
- "interpretation": 2-3 sentences explaining the quote in plain language
- "technical_insight": one sentence applying it to engineering or product work
- "practical_applications": array of 2-4 short imperative actions
- "mood": one of "stoic", "ambitious", "disciplined", "strategic", "reflective"
- "image_category": one of "nature", "architecture", "statues", "cityscape", "abstract"`)
	return b.String()
}

// ideaPrompt asks for carousel content for the given idea number.
func ideaPrompt(number int) string {
	return fmt.Sprintf(`Produce business idea #%d in an ongoing daily series. It must be
specific enough to start within a week and must lean on AI tooling.

Return a JSON object with exactly these fields:
- "idea_number": %d
- "title": punchy name for the idea, under 60 characters
- "summary": 2-3 sentences on what it is and who pays for it
- "steps": array of 4-6 concrete steps, each under 120 characters
- "kickoff_prompt": a ready-to-paste prompt the reader gives an AI assistant to start step one
- "hook": one attention-grabbing opening line
- "hashtags": array of up to 10 relevant hashtags including the # prefix`, number, number)
}
