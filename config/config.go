package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds the full runtime configuration, loaded from the environment.
type Settings struct {
	// Content generation
	CohereAPIKey string
	CohereModel  string
	Temperature  float64
	MaxTokens    int
	Personas     []string

	// Publish credentials and endpoints
	GraphBaseURL string
	OwnerID      string
	AccessToken  string
	AppID        string
	AppSecret    string
	ShareToFeed  bool

	// Media hosting
	PublicBaseURL string // if set, artifacts are assumed reachable under it
	FileHostURL   string // multipart fallback host endpoint
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	S3PublicBase  string // public URL base for uploaded objects

	// State store
	StateBackend string // "file" (default) or "redis"
	RedisAddr    string
	RedisPass    string
	RedisDB      int

	// Format rotation frequencies (0 disables a format)
	FlashEvery    int
	CarouselEvery int
	AnimatedEvery int

	// Scheduler
	PostTimes []string // "HH:MM", local time
	Jitter    time.Duration

	// Optional integrations
	KafkaBrokers []string
	KafkaTopic   string
	ThemeFeedURL string
	AnimationURL string // animation queue endpoint; empty disables
	AnimationKey string

	// HTTP status API
	APIPort string

	// Audio selection
	AudioMode       string // original, platform, mixed, minimal
	AudioAssetsFile string // JSON array of platform audio-asset ids

	// Paths
	ImagesPath string
	AudioPath  string
	OutputPath string
	LogsPath   string
}

// Load reads .env (if present) and assembles Settings from the environment.
// Only the Cohere key is required up front; publish credentials are validated
// by the commands that need them.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	s := &Settings{
		CohereAPIKey: os.Getenv("COHERE_API_KEY"),
		CohereModel:  getEnvOrDefault("COHERE_MODEL", "command-r-plus-08-2024"),
		Temperature:  getEnvFloat("LLM_TEMPERATURE", 0.9),
		MaxTokens:    getEnvInt("LLM_MAX_TOKENS", 2000),
		Personas:     getEnvList("CONTENT_PERSONAS", defaultPersonas),

		GraphBaseURL: getEnvOrDefault("GRAPH_BASE_URL", "https://graph.facebook.com/v19.0"),
		OwnerID:      os.Getenv("PLATFORM_USER_ID"),
		AccessToken:  os.Getenv("PLATFORM_ACCESS_TOKEN"),
		AppID:        os.Getenv("PLATFORM_APP_ID"),
		AppSecret:    os.Getenv("PLATFORM_APP_SECRET"),
		ShareToFeed:  getEnvBool("SHARE_TO_FEED", true),

		PublicBaseURL: strings.TrimRight(os.Getenv("MEDIA_PUBLIC_URL"), "/"),
		FileHostURL:   getEnvOrDefault("FILE_HOST_URL", "https://catbox.moe/user/api.php"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Region:      os.Getenv("S3_REGION"),
		S3Prefix:      strings.Trim(os.Getenv("S3_PREFIX"), "/"),
		S3PublicBase:  strings.TrimRight(os.Getenv("S3_PUBLIC_BASE"), "/"),

		StateBackend: getEnvOrDefault("STATE_BACKEND", "file"),
		RedisAddr:    getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPass:    os.Getenv("REDIS_PASS"),
		RedisDB:      getEnvInt("REDIS_DB", 0),

		FlashEvery:    getEnvInt("FLASH_EVERY", DefaultFlashEvery),
		CarouselEvery: getEnvInt("CAROUSEL_EVERY", DefaultCarouselEvery),
		AnimatedEvery: getEnvInt("ANIMATED_EVERY", DefaultAnimatedEvery),

		PostTimes: getEnvList("POST_TIMES", defaultPostTimes),
		Jitter:    getEnvDuration("POST_JITTER", DefaultJitter),

		KafkaBrokers: getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "stoicbot.runs"),
		ThemeFeedURL: os.Getenv("THEME_FEED_URL"),
		AnimationURL: os.Getenv("ANIMATION_QUEUE_URL"),
		AnimationKey: os.Getenv("ANIMATION_API_KEY"),

		APIPort: getEnvOrDefault("PORT", "8080"),

		AudioMode:       getEnvOrDefault("AUDIO_MODE", "original"),
		AudioAssetsFile: os.Getenv("AUDIO_ASSETS_FILE"),

		ImagesPath: getEnvOrDefault("IMAGES_PATH", ImagesDir),
		AudioPath:  getEnvOrDefault("AUDIO_PATH", AudioDir),
		OutputPath: getEnvOrDefault("OUTPUT_PATH", OutputDir),
		LogsPath:   getEnvOrDefault("LOGS_PATH", LogsDir),
	}

	for _, t := range s.PostTimes {
		if _, _, err := ParseClock(t); err != nil {
			return nil, fmt.Errorf("invalid POST_TIMES entry %q: %w", t, err)
		}
	}

	return s, nil
}

// RequirePublish validates the credentials needed for live posting.
func (s *Settings) RequirePublish() error {
	var missing []string
	if s.OwnerID == "" {
		missing = append(missing, "PLATFORM_USER_ID")
	}
	if s.AccessToken == "" {
		missing = append(missing, "PLATFORM_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(v string) (hour, minute int, err error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", v)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour in %q", v)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute in %q", v)
	}
	return hour, minute, nil
}

var defaultPostTimes = []string{"07:00", "12:00", "17:00", "20:00", "22:00"}

var defaultPersonas = []string{
	"Marcus Aurelius",
	"Seneca",
	"Machiavelli",
	"Sun Tzu",
	"Baltasar Gracián",
	"Epictetus",
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
