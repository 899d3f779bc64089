package assets

import (
	"encoding/json"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var audioExtensions = map[string]bool{
	".mp3": true,
	".m4a": true,
	".wav": true,
	".aac": true,
}

// Audio selection modes. Original picks a local track, platform picks a
// platform audio-asset id attached at publish time, mixed flips between
// the two, minimal produces silent video.
const (
	AudioModeOriginal = "original"
	AudioModePlatform = "platform"
	AudioModeMixed    = "mixed"
	AudioModeMinimal  = "minimal"
)

// AudioChoice is the selected background audio. Exactly one of Path and
// AssetID is set, or neither in minimal mode.
type AudioChoice struct {
	Path    string
	AssetID string
}

// AudioConfig configures the selector. AssetIDsFile is a JSON array of
// platform audio-asset ids; it only matters for the platform and mixed
// modes.
type AudioConfig struct {
	Root         string
	Mode         string
	AssetIDsFile string
}

// AudioSelector picks background audio. Local tracks are reusable, so
// nothing is marked used; a mood subfolder is preferred when it exists,
// otherwise any track in the library qualifies.
type AudioSelector struct {
	mu       sync.Mutex
	root     string
	mode     string
	assetIDs []string
	rng      *rand.Rand
}

func NewAudioSelector(cfg AudioConfig) *AudioSelector {
	mode := cfg.Mode
	if mode == "" {
		mode = AudioModeOriginal
	}

	var ids []string
	if cfg.AssetIDsFile != "" {
		var err error
		ids, err = loadAssetIDs(cfg.AssetIDsFile)
		if err != nil {
			log.Printf("warning: audio asset ids unavailable, using local tracks: %v", err)
		}
	}

	return &AudioSelector{
		root:     cfg.Root,
		mode:     mode,
		assetIDs: ids,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Select returns the audio for one post, or ErrNoAssets when the configured
// source is empty. An empty choice is acceptable to renderers that support
// silent output, so callers decide whether this is fatal.
func (a *AudioSelector) Select(mood string) (AudioChoice, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.mode {
	case AudioModeMinimal:
		return AudioChoice{}, nil
	case AudioModePlatform:
		return a.platformChoice()
	case AudioModeMixed:
		if len(a.assetIDs) > 0 && a.rng.Intn(2) == 0 {
			return a.platformChoice()
		}
		choice, err := a.originalChoice(mood)
		if err != nil && len(a.assetIDs) > 0 {
			return a.platformChoice()
		}
		return choice, err
	default:
		return a.originalChoice(mood)
	}
}

func (a *AudioSelector) platformChoice() (AudioChoice, error) {
	if len(a.assetIDs) == 0 {
		return AudioChoice{}, ErrNoAssets
	}
	return AudioChoice{AssetID: a.assetIDs[a.rng.Intn(len(a.assetIDs))]}, nil
}

func (a *AudioSelector) originalChoice(mood string) (AudioChoice, error) {
	if mood != "" {
		if tracks := listAudio(filepath.Join(a.root, strings.ToLower(mood))); len(tracks) > 0 {
			return AudioChoice{Path: tracks[a.rng.Intn(len(tracks))]}, nil
		}
	}
	tracks := listAudio(a.root)
	if len(tracks) == 0 {
		return AudioChoice{}, ErrNoAssets
	}
	return AudioChoice{Path: tracks[a.rng.Intn(len(tracks))]}, nil
}

func listAudio(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if audioExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func loadAssetIDs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
