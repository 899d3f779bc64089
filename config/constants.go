package config

import "time"

// Video output constants (9:16 vertical)
const (
	VideoWidth   = 1080
	VideoHeight  = 1920
	VideoCodec   = "libx264"
	AudioCodec   = "aac"
	AudioBitrate = "192k"
	VideoPreset  = "fast"

	// ReelDuration is the default quote reel length in seconds.
	ReelDuration = 10.0

	// FlashImageDuration is the per-image flash interval in seconds.
	FlashImageDuration = 0.3

	// Text overlay styling
	QuoteFontSize  = 64
	AuthorFontSize = 40
	QuoteWrapWidth = 26

	// CarouselSlideHeight gives carousel slides a 4:5 frame.
	CarouselSlideHeight = 1350
)

// Publish protocol constants
const (
	// PollInterval is the wait between container status checks.
	PollInterval = 10 * time.Second

	// PollMaxAttempts bounds the container status polling loop (~5 minutes).
	PollMaxAttempts = 30

	// TokenRefreshThresholdDays triggers a proactive token refresh when the
	// credential's declared remaining lifetime drops below it.
	TokenRefreshThresholdDays = 7

	// CaptionMaxLength is the platform caption limit.
	CaptionMaxLength = 2200

	// HashtagLimit caps the number of hashtags appended to a caption.
	HashtagLimit = 10

	// RecordCaptionLength bounds the caption copy kept in run records; the
	// full caption only goes to the platform.
	RecordCaptionLength = 200
)

// Asset selection constants
const (
	// CuratedWeight / GeneratedWeight drive the weighted pool choice.
	CuratedWeight   = 0.85
	GeneratedWeight = 0.15

	// UsedDirName is the reserved per-category subfolder for consumed assets.
	UsedDirName = "used"

	// ArchiveDirName is excluded from selection but never written by the bot.
	ArchiveDirName = "archive"
)

// Directory layout
const (
	ImagesDir = "assets/images"
	AudioDir  = "assets/audio"
	OutputDir = "output"
	LogsDir   = "logs"
)

// Scheduler defaults
const (
	// DefaultJitter bounds the random perturbation of each posting slot.
	DefaultJitter = 10 * time.Minute
)

// Format rotation defaults: priority order is flash, carousel, animated.
const (
	DefaultFlashEvery    = 6
	DefaultCarouselEvery = 3
	DefaultAnimatedEvery = 5
)
