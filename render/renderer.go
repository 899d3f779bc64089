// Package render turns payloads and background assets into publishable
// media files using ffmpeg.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"stoicbot/config"
	"stoicbot/content"
)

// Result describes the media a render produced.
type Result struct {
	ArtifactPath  string
	ThumbnailPath string
	// SlidePaths is set for carousel renders, one image per slide.
	SlidePaths []string
}

// Renderer builds reels, flash videos, and carousel slides on the local
// ffmpeg installation.
type Renderer struct {
	outputDir string
}

func NewRenderer(outputDir string) (*Renderer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Renderer{outputDir: outputDir}, nil
}

// RenderReel produces a single-image quote reel: the background slowly
// zooms while the quote and attribution stay burned on screen.
func (r *Renderer) RenderReel(quote *content.QuotePayload, imagePath, audioPath, runID string) (*Result, error) {
	assPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_overlay.ass", runID))
	if err := writeASS(quoteOverlay(quote.Quote, quote.Author, config.ReelDuration), assPath); err != nil {
		return nil, fmt.Errorf("failed to generate overlay: %w", err)
	}
	defer os.Remove(assPath)

	outputPath := filepath.Join(r.outputDir, fmt.Sprintf("%s_reel.mp4", runID))

	video := ffmpeg.Input(imagePath, ffmpeg.KwArgs{
		"loop":      "1",
		"framerate": "30",
		"t":         fmt.Sprintf("%.2f", config.ReelDuration),
	})
	styled := fillFrame(video, config.VideoHeight).
		Filter("zoompan", ffmpeg.Args{fmt.Sprintf(
			"z='min(zoom+0.0008,1.08)':d=%d:s=%dx%d:fps=30",
			int(config.ReelDuration*30), config.VideoWidth, config.VideoHeight)}).
		Filter("ass", ffmpeg.Args{assPathForFilter(assPath)})

	streams := []*ffmpeg.Stream{styled}
	outArgs := ffmpeg.KwArgs{
		"c:v":     config.VideoCodec,
		"preset":  config.VideoPreset,
		"pix_fmt": "yuv420p",
		"t":       fmt.Sprintf("%.2f", config.ReelDuration),
	}
	if audioPath != "" {
		streams = append(streams, ffmpeg.Input(audioPath))
		outArgs["c:a"] = config.AudioCodec
		outArgs["b:a"] = config.AudioBitrate
		outArgs["shortest"] = ""
	}

	if err := ffmpeg.Output(streams, outputPath, outArgs).OverWriteOutput().Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	thumbPath, err := r.renderThumbnail(imagePath, runID)
	if err != nil {
		return nil, err
	}
	return &Result{ArtifactPath: outputPath, ThumbnailPath: thumbPath}, nil
}

// RenderFlash produces a rapid-fire slideshow: the image set cycles at the
// flash interval while the quote reveals a few words at a time, until the
// clip fills the reel duration.
func (r *Renderer) RenderFlash(quote *content.QuotePayload, images []string, audioPath, runID string) (*Result, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("flash render needs at least one image")
	}

	listPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_flash.txt", runID))
	if err := writeConcatList(listPath, images, config.FlashImageDuration, config.ReelDuration); err != nil {
		return nil, fmt.Errorf("failed to stage concat list: %w", err)
	}
	defer os.Remove(listPath)

	assPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_overlay.ass", runID))
	if err := writeASS(revealOverlay(quote.Quote, quote.Author, config.ReelDuration), assPath); err != nil {
		return nil, fmt.Errorf("failed to generate overlay: %w", err)
	}
	defer os.Remove(assPath)

	outputPath := filepath.Join(r.outputDir, fmt.Sprintf("%s_flash.mp4", runID))

	video := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"})
	styled := fillFrame(video, config.VideoHeight).
		Filter("ass", ffmpeg.Args{assPathForFilter(assPath)})

	streams := []*ffmpeg.Stream{styled}
	outArgs := ffmpeg.KwArgs{
		"c:v":     config.VideoCodec,
		"preset":  config.VideoPreset,
		"pix_fmt": "yuv420p",
		"r":       "30",
	}
	if audioPath != "" {
		streams = append(streams, ffmpeg.Input(audioPath))
		outArgs["c:a"] = config.AudioCodec
		outArgs["b:a"] = config.AudioBitrate
		outArgs["shortest"] = ""
	}

	if err := ffmpeg.Output(streams, outputPath, outArgs).OverWriteOutput().Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w", err)
	}

	thumbPath, err := r.renderThumbnail(images[0], runID)
	if err != nil {
		return nil, err
	}
	return &Result{ArtifactPath: outputPath, ThumbnailPath: thumbPath}, nil
}

// RenderCarousel produces one slide image per idea section: a title slide,
// one slide per step, and a closing kickoff-prompt slide. Images repeat
// cyclically when the idea has more slides than backgrounds.
func (r *Renderer) RenderCarousel(idea *content.IdeaPayload, images []string, runID string) (*Result, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("carousel render needs at least one image")
	}

	texts := []string{fmt.Sprintf("IDEA #%d\\N\\N%s", idea.Number, wrapText(idea.Title, config.QuoteWrapWidth))}
	for i, step := range idea.Steps {
		texts = append(texts, fmt.Sprintf("STEP %d\\N\\N%s", i+1, wrapText(step, config.QuoteWrapWidth+6)))
	}
	texts = append(texts, "YOUR KICKOFF PROMPT\\N\\N"+wrapText(idea.KickoffPrompt, config.QuoteWrapWidth+6))

	var slides []string
	for i, text := range texts {
		slidePath := filepath.Join(r.outputDir, fmt.Sprintf("%s_slide_%02d.jpg", runID, i+1))
		background := images[i%len(images)]
		if err := r.renderSlide(text, background, slidePath, runID, i); err != nil {
			return nil, fmt.Errorf("slide %d: %w", i+1, err)
		}
		slides = append(slides, slidePath)
	}

	return &Result{
		ArtifactPath:  slides[0],
		ThumbnailPath: slides[0],
		SlidePaths:    slides,
	}, nil
}

func (r *Renderer) renderSlide(text, imagePath, outputPath, runID string, index int) error {
	assPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_slide_%02d.ass", runID, index))
	lines := []overlayLine{{Text: text, Style: "Quote", Start: 0, End: 1}}
	if err := writeASS(lines, assPath); err != nil {
		return fmt.Errorf("failed to generate overlay: %w", err)
	}
	defer os.Remove(assPath)

	styled := fillFrame(ffmpeg.Input(imagePath), config.CarouselSlideHeight).
		Filter("ass", ffmpeg.Args{assPathForFilter(assPath)})

	err := ffmpeg.Output([]*ffmpeg.Stream{styled}, outputPath, ffmpeg.KwArgs{
		"frames:v": "1",
		"q:v":      "2",
	}).OverWriteOutput().Run()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

// renderThumbnail writes a cover frame from the primary background image.
func (r *Renderer) renderThumbnail(imagePath, runID string) (string, error) {
	thumbPath := filepath.Join(r.outputDir, fmt.Sprintf("%s_cover.jpg", runID))
	styled := fillFrame(ffmpeg.Input(imagePath), config.VideoHeight)
	err := ffmpeg.Output([]*ffmpeg.Stream{styled}, thumbPath, ffmpeg.KwArgs{
		"frames:v": "1",
		"q:v":      "2",
	}).OverWriteOutput().Run()
	if err != nil {
		return "", fmt.Errorf("thumbnail ffmpeg failed: %w", err)
	}
	return thumbPath, nil
}

// fillFrame scales then center-crops a stream to the target vertical frame,
// so any source aspect ratio fills the canvas.
func fillFrame(s *ffmpeg.Stream, height int) *ffmpeg.Stream {
	return s.Filter("scale", ffmpeg.Args{fmt.Sprintf(
		"%d:%d:force_original_aspect_ratio=increase", config.VideoWidth, height)}).
		Filter("crop", ffmpeg.Args{fmt.Sprintf("%d:%d", config.VideoWidth, height)})
}

// writeConcatList stages a concat-demuxer list cycling the images until the
// clip reaches the target duration.
func writeConcatList(path string, images []string, perImage, total float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	elapsed := 0.0
	for i := 0; elapsed < total; i++ {
		img := images[i%len(images)]
		fmt.Fprintf(file, "file '%s'\n", filepath.ToSlash(img))
		fmt.Fprintf(file, "duration %.2f\n", perImage)
		elapsed += perImage
	}
	// The concat demuxer ignores the last duration unless the final entry
	// repeats.
	fmt.Fprintf(file, "file '%s'\n", filepath.ToSlash(images[0]))
	return nil
}
