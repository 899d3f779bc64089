package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"stoicbot/config"
	"stoicbot/content"
	"stoicbot/poll"
)

// ErrAnimationFailed means the remote animation job ended in a terminal
// failure state.
var ErrAnimationFailed = errors.New("animation job failed")

// AnimatedRenderer delegates background motion to a remote animation queue:
// it submits the still image as a job, polls until the job renders, then
// downloads the clip and burns the quote overlay locally.
type AnimatedRenderer struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	renderer   *Renderer

	// Poll bounds job status checks. Tests override Sleep.
	Poll poll.Policy
}

func NewAnimatedRenderer(endpoint, apiKey string, renderer *Renderer) *AnimatedRenderer {
	return &AnimatedRenderer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		renderer:   renderer,
		Poll: poll.Policy{
			MaxAttempts: config.PollMaxAttempts,
			Interval:    config.PollInterval,
		},
	}
}

// Enabled reports whether an animation endpoint is configured.
func (a *AnimatedRenderer) Enabled() bool { return a.endpoint != "" }

// Render produces an animated quote reel.
func (a *AnimatedRenderer) Render(ctx context.Context, quote *content.QuotePayload, imagePath, audioPath, runID string) (*Result, error) {
	jobID, err := a.submitJob(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	log.Printf("animation job submitted: %s", jobID)

	clipURL, err := a.waitForJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	clipPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_motion.mp4", runID))
	if err := a.downloadClip(ctx, clipURL, clipPath); err != nil {
		return nil, err
	}
	defer os.Remove(clipPath)

	return a.overlayQuote(quote, clipPath, audioPath, imagePath, runID)
}

func (a *AnimatedRenderer) submitJob(ctx context.Context, imagePath string) (string, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open background image: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("motion", "slow_zoom"); err != nil {
		return "", err
	}
	if err := w.WriteField("duration", fmt.Sprintf("%.0f", config.ReelDuration)); err != nil {
		return "", err
	}
	part, err := w.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("stage image upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/jobs", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	var result struct {
		ID string `json:"id"`
	}
	if err := a.doJSON(req, &result); err != nil {
		return "", fmt.Errorf("submit animation job: %w", err)
	}
	if result.ID == "" {
		return "", errors.New("animation queue returned no job id")
	}
	return result.ID, nil
}

func (a *AnimatedRenderer) waitForJob(ctx context.Context, jobID string) (string, error) {
	var clipURL string
	err := a.Poll.Run(ctx, func(attempt int) (poll.Decision, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"/jobs/"+jobID, nil)
		if err != nil {
			return poll.Fatal, err
		}
		req.Header.Set("Authorization", "Bearer "+a.apiKey)

		var result struct {
			Status   string `json:"status"`
			VideoURL string `json:"video_url"`
			Error    string `json:"error"`
		}
		if err := a.doJSON(req, &result); err != nil {
			log.Printf("animation status check %d failed: %v", attempt, err)
			return poll.Continue, err
		}

		switch result.Status {
		case "done":
			clipURL = result.VideoURL
			return poll.Done, nil
		case "failed":
			return poll.Fatal, fmt.Errorf("%w: job %s: %s", ErrAnimationFailed, jobID, result.Error)
		default:
			return poll.Continue, nil
		}
	})
	if err != nil {
		return "", err
	}
	if clipURL == "" {
		return "", fmt.Errorf("%w: job %s finished without a clip url", ErrAnimationFailed, jobID)
	}
	return clipURL, nil
}

func (a *AnimatedRenderer) downloadClip(ctx context.Context, clipURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clipURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download animation clip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clip download returned %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write animation clip: %w", err)
	}
	return nil
}

// overlayQuote burns the quote onto the downloaded motion clip and mixes in
// the audio track.
func (a *AnimatedRenderer) overlayQuote(quote *content.QuotePayload, clipPath, audioPath, imagePath, runID string) (*Result, error) {
	assPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_overlay.ass", runID))
	if err := writeASS(quoteOverlay(quote.Quote, quote.Author, config.ReelDuration), assPath); err != nil {
		return nil, fmt.Errorf("failed to generate overlay: %w", err)
	}
	defer os.Remove(assPath)

	outputPath := filepath.Join(a.renderer.outputDir, fmt.Sprintf("%s_animated.mp4", runID))

	video := ffmpeg.Input(clipPath, ffmpeg.KwArgs{"t": fmt.Sprintf("%.2f", config.ReelDuration)})
	styled := fillFrame(video, config.VideoHeight).
		Filter("ass", ffmpeg.Args{assPathForFilter(assPath)})

	streams := []*ffmpeg.Stream{styled}
	outArgs := ffmpeg.KwArgs{
		"c:v":     config.VideoCodec,
		"preset":  config.VideoPreset,
		"pix_fmt": "yuv420p",
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

	thumbPath, err := a.renderer.renderThumbnail(imagePath, runID)
	if err != nil {
		return nil, err
	}
	return &Result{ArtifactPath: outputPath, ThumbnailPath: thumbPath}, nil
}

func (a *AnimatedRenderer) doJSON(req *http.Request, result interface{}) error {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(body))
	}
	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
