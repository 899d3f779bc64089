package render

import (
	"fmt"
	"os"
	"strings"

	"stoicbot/config"
)

// overlayLine is one timed text block burned onto the video.
type overlayLine struct {
	Text  string
	Style string
	Start float64
	End   float64
}

// writeASS renders timed overlay lines into an ASS subtitle file. Two styles
// exist: Quote for the main text, Author for the attribution line.
func writeASS(lines []overlayLine, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Fprintln(file, "[Script Info]")
	fmt.Fprintln(file, "Title: Stoicbot Overlay")
	fmt.Fprintln(file, "ScriptType: v4.00+")
	fmt.Fprintf(file, "PlayResX: %d\n", config.VideoWidth)
	fmt.Fprintf(file, "PlayResY: %d\n", config.VideoHeight)
	fmt.Fprintln(file, "")
	fmt.Fprintln(file, "[V4+ Styles]")
	fmt.Fprintln(file, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding")

	// Quote text sits slightly above center; the attribution hangs below it.
	fmt.Fprintf(file, "Style: Quote,Georgia,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,3,1,5,80,80,0,1\n", config.QuoteFontSize)
	fmt.Fprintf(file, "Style: Author,Georgia,%d,&H00D0D0D0,&H00D0D0D0,&H00000000,&H80000000,0,-1,0,0,100,100,0,0,1,2,1,2,80,80,560,1\n", config.AuthorFontSize)

	fmt.Fprintln(file, "")
	fmt.Fprintln(file, "[Events]")
	fmt.Fprintln(file, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text")

	for _, line := range lines {
		style := line.Style
		if style == "" {
			style = "Quote"
		}
		fmt.Fprintf(file, "Dialogue: 0,%s,%s,%s,,0,0,0,,{\\fad(400,400)}%s\n",
			formatASSTimestamp(line.Start),
			formatASSTimestamp(line.End),
			style,
			line.Text)
	}
	return nil
}

// quoteOverlay builds the overlay lines for a quote held on screen for the
// full clip.
func quoteOverlay(quote, author string, duration float64) []overlayLine {
	return []overlayLine{
		{Text: wrapText("“"+quote+"”", config.QuoteWrapWidth), Style: "Quote", Start: 0, End: duration},
		{Text: "— " + author, Style: "Author", Start: 0.6, End: duration},
	}
}

// revealOverlay builds the flash-style overlay: the quote appears a few
// words per beat over the first part of the clip, then holds complete while
// the attribution joins for the remainder.
func revealOverlay(quote, author string, duration float64) []overlayLine {
	words := strings.Fields(quote)
	if len(words) == 0 {
		return quoteOverlay(quote, author, duration)
	}

	const wordsPerBeat = 3
	beats := (len(words) + wordsPerBeat - 1) / wordsPerBeat
	revealWindow := duration * 0.6
	beatLen := revealWindow / float64(beats)

	var lines []overlayLine
	for i := 0; i < beats; i++ {
		shown := strings.Join(words[:min((i+1)*wordsPerBeat, len(words))], " ")
		end := float64(i+1) * beatLen
		if i == beats-1 {
			shown = "“" + shown + "”"
			end = duration
		}
		lines = append(lines, overlayLine{
			Text:  wrapText(shown, config.QuoteWrapWidth),
			Style: "Quote",
			Start: float64(i) * beatLen,
			End:   end,
		})
	}
	return append(lines, overlayLine{
		Text:  "— " + author,
		Style: "Author",
		Start: revealWindow,
		End:   duration,
	})
}

// wrapText breaks text into \N-joined lines no wider than maxChars. Words
// longer than the width stand on their own line.
func wrapText(text string, maxChars int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > maxChars {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)
	return strings.Join(lines, "\\N")
}

// formatASSTimestamp converts seconds to the ASS h:mm:ss.cc form.
func formatASSTimestamp(seconds float64) string {
	hours := int(seconds / 3600)
	minutes := int((seconds - float64(hours*3600)) / 60)
	secs := int(seconds) % 60
	centisecs := int((seconds - float64(int(seconds))) * 100)

	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centisecs)
}

// assPathForFilter converts a filesystem path into the escaped form the ass
// filter expects.
func assPathForFilter(path string) string {
	escaped := strings.ReplaceAll(path, "\\", "/")
	return strings.ReplaceAll(escaped, ":", "\\:")
}
