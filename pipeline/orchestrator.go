// Package pipeline runs the end-to-end posting workflow: generate content,
// select assets, render media, publish, then commit resource bookkeeping.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"stoicbot/assets"
	"stoicbot/config"
	"stoicbot/content"
	"stoicbot/publish"
	"stoicbot/render"
	"stoicbot/state"
	"stoicbot/store"
	"stoicbot/types"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing. Overlapping runs would double-consume assets.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Generator produces validated post payloads.
type Generator interface {
	GenerateQuote(ctx context.Context, theme string) (*content.QuotePayload, error)
	GenerateIdea(ctx context.Context, number int) (*content.IdeaPayload, error)
}

// ImageSource selects and consumes background images.
type ImageSource interface {
	Select(mood, category string) (string, error)
	SelectN(mood, category string, n int) ([]string, error)
	MarkUsed(path string) error
}

// AudioSource selects background audio: a local track, a platform asset
// id, or neither.
type AudioSource interface {
	Select(mood string) (assets.AudioChoice, error)
}

// Media renders the local formats.
type Media interface {
	RenderReel(quote *content.QuotePayload, imagePath, audioPath, runID string) (*render.Result, error)
	RenderFlash(quote *content.QuotePayload, images []string, audioPath, runID string) (*render.Result, error)
	RenderCarousel(idea *content.IdeaPayload, images []string, runID string) (*render.Result, error)
}

// Animator renders the animated format via the remote queue.
type Animator interface {
	Enabled() bool
	Render(ctx context.Context, quote *content.QuotePayload, imagePath, audioPath, runID string) (*render.Result, error)
}

// Publisher runs the three-phase publish protocol.
type Publisher interface {
	PublishVideo(ctx context.Context, post publish.VideoPost) (string, error)
	PublishCarousel(ctx context.Context, post publish.CarouselPost) (string, error)
}

// TokenChecker refreshes credentials before a publish when needed.
type TokenChecker interface {
	EnsureFresh(ctx context.Context)
}

// EventSink receives finished run records, successful or not.
type EventSink interface {
	PublishRun(ctx context.Context, rec types.RunRecord) error
}

// FlashImageCount is how many distinct backgrounds a flash post cycles.
const FlashImageCount = 8

// Orchestrator wires the pipeline's dependencies and executes runs one at a
// time.
type Orchestrator struct {
	Store    store.Store
	Gen      Generator
	Images   ImageSource
	Audio    AudioSource
	Renderer Media
	Animator Animator     // optional
	Pub      Publisher    // nil skips publishing (dry run)
	Host     publish.Host // turns artifacts into public URLs
	Token    TokenChecker // optional
	Events   EventSink    // optional
	Status   *state.Manager
	Rotation Rotation
	Hashtags []string

	runMu sync.Mutex
}

// RunOptions tweak a single run.
type RunOptions struct {
	// Theme steers quote generation; empty lets the model choose freely.
	Theme string
	// Format forces a specific format instead of the rotation's choice.
	Format types.Format
}

// Run executes one pipeline run. The returned record is always complete:
// on failure it carries every step up to and including the failed one, is
// persisted, and the error is returned alongside it.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*types.RunRecord, error) {
	if !o.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer o.runMu.Unlock()

	counter, err := o.Store.ReadCounter(ctx)
	if err != nil {
		return nil, fmt.Errorf("read post counter: %w", err)
	}
	number := counter + 1

	format := opts.Format
	if format == "" {
		format = o.Rotation.ChooseFormat(number)
	}
	if format == types.FormatAnimated && (o.Animator == nil || !o.Animator.Enabled()) {
		log.Printf("animation queue not configured, run #%d falls back to reel", number)
		format = types.FormatReel
	}

	rec := &types.RunRecord{
		RunID:     uuid.New().String(),
		Format:    format,
		Number:    number,
		StartTime: time.Now(),
		Status:    types.RunPending,
	}
	log.Printf("run %s started: %s #%d", rec.RunID, format, number)
	o.setStatus(types.StateGenerating, fmt.Sprintf("Run started: %s #%d", format, number))

	err = o.execute(ctx, rec, counter, opts.Theme)

	rec.EndTime = time.Now()
	if err != nil {
		rec.Status = types.RunFailed
		rec.Error = err.Error()
		rec.Trace = string(debug.Stack())
	} else {
		rec.Status = types.RunCompleted
	}

	// The record is persisted on success and failure alike; a run that
	// crashed mid-way must still be visible in the day's log.
	if persistErr := o.Store.AppendRun(ctx, *rec); persistErr != nil {
		log.Printf("warning: failed to persist run record %s: %v", rec.RunID, persistErr)
	}
	o.emit(ctx, *rec)

	if o.Status != nil {
		o.Status.SetLastRun(rec)
		if err == nil && o.Pub != nil {
			o.Status.SetPostCount(number)
		}
		o.Status.SetNextFormat(o.Rotation.ChooseFormat(number + 1))
	}

	if err != nil {
		log.Printf("run %s failed: %v", rec.RunID, err)
		return rec, err
	}
	log.Printf("run %s completed in %.1fs", rec.RunID, rec.EndTime.Sub(rec.StartTime).Seconds())
	return rec, nil
}

// execute performs the pipeline steps, appending one StepRecord per step.
// Resource bookkeeping happens last, only after the publish confirmed.
func (o *Orchestrator) execute(ctx context.Context, rec *types.RunRecord, counter int, theme string) error {
	var (
		quote   *content.QuotePayload
		idea    *content.IdeaPayload
		caption string
		mood    string
	)

	err := o.step(rec, "generate", func(details map[string]string) error {
		var err error
		if rec.Format == types.FormatCarousel {
			idea, err = o.Gen.GenerateIdea(ctx, rec.Number)
			if err != nil {
				return err
			}
			caption = idea.Caption(o.Hashtags)
			details["title"] = idea.Title
			return nil
		}
		quote, err = o.Gen.GenerateQuote(ctx, theme)
		if err != nil {
			return err
		}
		caption = quote.Caption(o.Hashtags)
		mood = quote.Mood
		details["author"] = quote.Author
		details["mood"] = quote.Mood
		return nil
	})
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	o.setStatus(types.StateSelecting, "Selecting assets")
	var images []string
	var audio assets.AudioChoice
	err = o.step(rec, "select_assets", func(details map[string]string) error {
		category := ""
		if quote != nil {
			category = quote.ImageCategory
		}
		var err error
		switch rec.Format {
		case types.FormatFlash:
			images, err = o.Images.SelectN(mood, category, FlashImageCount)
		case types.FormatCarousel:
			// Title, steps, and the closing slide each need a background.
			images, err = o.Images.SelectN(mood, category, min(len(idea.Steps)+2, 10))
		default:
			var img string
			img, err = o.Images.Select(mood, category)
			images = []string{img}
		}
		if err != nil {
			return err
		}
		details["images"] = fmt.Sprintf("%d", len(images))

		if rec.Format != types.FormatCarousel {
			audio, err = o.Audio.Select(mood)
			if err != nil {
				return err
			}
			switch {
			case audio.AssetID != "":
				details["audio"] = "asset:" + audio.AssetID
			case audio.Path != "":
				details["audio"] = audio.Path
			default:
				details["audio"] = "none"
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("select assets: %w", err)
	}

	o.setStatus(types.StateRendering, fmt.Sprintf("Rendering %s", rec.Format))
	var result *render.Result
	err = o.step(rec, "render", func(details map[string]string) error {
		var err error
		switch rec.Format {
		case types.FormatFlash:
			result, err = o.Renderer.RenderFlash(quote, images, audio.Path, rec.RunID)
		case types.FormatCarousel:
			result, err = o.Renderer.RenderCarousel(idea, images, rec.RunID)
		case types.FormatAnimated:
			result, err = o.Animator.Render(ctx, quote, images[0], audio.Path, rec.RunID)
		default:
			result, err = o.Renderer.RenderReel(quote, images[0], audio.Path, rec.RunID)
		}
		if err != nil {
			return err
		}
		details["artifact"] = result.ArtifactPath
		return nil
	})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	rec.Output = &types.RunOutput{
		ArtifactPath:  result.ArtifactPath,
		ThumbnailPath: result.ThumbnailPath,
		Caption:       truncateRunes(caption, config.RecordCaptionLength),
	}

	if o.Pub == nil {
		// Dry run: nothing was published, so nothing is consumed and the
		// counter stays put.
		o.recordSkipped(rec, "publish")
		o.recordSkipped(rec, "finalize")
		return nil
	}

	o.setStatus(types.StatePublishing, "Publishing")
	err = o.step(rec, "publish", func(details map[string]string) error {
		if o.Token != nil {
			o.Token.EnsureFresh(ctx)
		}

		var postID string
		var err error
		if rec.Format == types.FormatCarousel {
			urls := make([]string, 0, len(result.SlidePaths))
			for _, slide := range result.SlidePaths {
				hosted, hostErr := o.Host.HostFile(ctx, slide)
				if hostErr != nil {
					return hostErr
				}
				urls = append(urls, hosted)
			}
			postID, err = o.Pub.PublishCarousel(ctx, publish.CarouselPost{
				ImageURLs: urls,
				Caption:   caption,
			})
		} else {
			videoURL, hostErr := o.Host.HostFile(ctx, result.ArtifactPath)
			if hostErr != nil {
				return hostErr
			}
			coverURL := ""
			if result.ThumbnailPath != "" {
				if hosted, hostErr := o.Host.HostFile(ctx, result.ThumbnailPath); hostErr == nil {
					coverURL = hosted
				} else {
					log.Printf("warning: cover hosting failed, publishing without cover: %v", hostErr)
				}
			}
			postID, err = o.Pub.PublishVideo(ctx, publish.VideoPost{
				VideoURL:     videoURL,
				CoverURL:     coverURL,
				Caption:      caption,
				AudioAssetID: audio.AssetID,
			})
		}
		if err != nil {
			return err
		}
		rec.Output.PostID = postID
		details["post_id"] = postID
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	// Commit last: assets and the counter only move once the post exists.
	err = o.step(rec, "finalize", func(details map[string]string) error {
		for _, img := range images {
			if markErr := o.Images.MarkUsed(img); markErr != nil {
				log.Printf("warning: failed to mark %s used: %v", img, markErr)
			}
		}
		if err := o.Store.WriteCounterIfUnchanged(ctx, counter, rec.Number); err != nil {
			return err
		}
		details["post_count"] = fmt.Sprintf("%d", rec.Number)
		return nil
	})
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	o.setStatus(types.StateComplete, fmt.Sprintf("Posted %s", rec.Output.PostID))
	return nil
}

// step times one pipeline step and appends its record.
func (o *Orchestrator) step(rec *types.RunRecord, name string, fn func(details map[string]string) error) error {
	start := time.Now()
	details := make(map[string]string)
	err := fn(details)

	sr := types.StepRecord{
		Step:      name,
		Timestamp: start,
		Elapsed:   time.Since(start).Seconds(),
		Details:   details,
	}
	if err != nil {
		sr.Status = types.StepFailed
		sr.Details["error"] = err.Error()
	} else {
		sr.Status = types.StepSuccess
	}
	rec.Steps = append(rec.Steps, sr)

	log.Printf("step %s: %s (%.2fs)", name, sr.Status, sr.Elapsed)
	return err
}

func (o *Orchestrator) recordSkipped(rec *types.RunRecord, name string) {
	rec.Steps = append(rec.Steps, types.StepRecord{
		Step:      name,
		Status:    types.StepSkipped,
		Timestamp: time.Now(),
	})
	log.Printf("step %s: skipped (dry run)", name)
}

// truncateRunes cuts s to at most n characters on a rune boundary.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func (o *Orchestrator) setStatus(s types.State, msg string) {
	if o.Status == nil {
		return
	}
	o.Status.SetState(s)
	o.Status.AddLog(msg)
}

func (o *Orchestrator) emit(ctx context.Context, rec types.RunRecord) {
	if o.Events == nil {
		return
	}
	if err := o.Events.PublishRun(ctx, rec); err != nil {
		log.Printf("warning: failed to emit run event: %v", err)
	}
}
