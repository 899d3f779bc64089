// Package assets selects background media from the local library and tracks
// which files have already appeared in a post.
package assets

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"stoicbot/config"
)

// ErrNoAssets is returned when every candidate file has been used or the
// library is empty.
var ErrNoAssets = errors.New("no unused assets available")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// moodCategories maps a content mood to the image category searched first.
// Unknown moods fall through to a search across every category.
var moodCategories = map[string]string{
	"stoic":       "statues",
	"reflective":  "nature",
	"ambitious":   "cityscape",
	"strategic":   "architecture",
	"disciplined": "architecture",
}

const (
	curatedPool   = "curated"
	generatedPool = "generated"
)

// ImagePool hands out unused background images. The library layout is
// root/<pool>/<category>/*.jpg with pool either "curated" or "generated".
// Files already posted live in a used/ subfolder beside their category and
// are never selected again; archive/ folders are ignored entirely.
type ImagePool struct {
	mu   sync.Mutex
	root string
	rng  *rand.Rand
}

func NewImagePool(root string) *ImagePool {
	return &ImagePool{
		root: root,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Select returns one unused image path. The explicit category wins over the
// mood mapping; curated images are preferred over generated ones at the
// configured weight, with the other pool as fallback.
func (p *ImagePool) Select(mood, category string) (string, error) {
	picks, err := p.SelectN(mood, category, 1)
	if err != nil {
		return "", err
	}
	return picks[0], nil
}

// SelectN returns n distinct unused image paths. Fewer available images than
// n is an ErrNoAssets failure; a post never repeats a background within
// itself.
func (p *ImagePool) SelectN(mood, category string, n int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cat := strings.ToLower(category)
	if cat == "" {
		cat = moodCategories[strings.ToLower(mood)]
	}

	first, second := curatedPool, generatedPool
	if p.rng.Float64() >= config.CuratedWeight {
		first, second = generatedPool, curatedPool
	}

	candidates := p.unusedIn(first, cat)
	if len(candidates) < n {
		candidates = append(candidates, p.unusedIn(second, cat)...)
	}
	// Relax the category before giving up.
	if len(candidates) < n && cat != "" {
		candidates = append(candidates, p.unusedIn(first, "")...)
		candidates = append(candidates, p.unusedIn(second, "")...)
	}
	candidates = dedupe(candidates)
	if len(candidates) < n {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrNoAssets, n, len(candidates))
	}

	p.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates[:n], nil
}

// unusedIn lists selectable images under root/pool, restricted to one
// category when cat is non-empty.
func (p *ImagePool) unusedIn(pool, cat string) []string {
	base := filepath.Join(p.root, pool)
	var dirs []string
	if cat != "" {
		dirs = []string{filepath.Join(base, cat)}
	} else {
		entries, err := os.ReadDir(base)
		if err != nil {
			return nil
		}
		dirs = append(dirs, base)
		for _, e := range entries {
			if e.IsDir() && !excludedDir(e.Name()) {
				dirs = append(dirs, filepath.Join(base, e.Name()))
			}
		}
	}

	var out []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
	}
	return out
}

// MarkUsed moves an image into the used/ folder beside it so it is excluded
// from future selection. Callers treat failure as a warning, not a run
// failure; the post already exists by the time this runs.
func (p *ImagePool) MarkUsed(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	usedDir := filepath.Join(filepath.Dir(path), config.UsedDirName)
	if err := os.MkdirAll(usedDir, 0o755); err != nil {
		return fmt.Errorf("create used dir: %w", err)
	}
	dest := filepath.Join(usedDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("mark used: %w", err)
	}
	return nil
}

// Stats summarizes library occupancy for the status API.
type Stats struct {
	Curated   int            `json:"curated"`
	Generated int            `json:"generated"`
	Used      int            `json:"used"`
	ByPool    map[string]int `json:"by_pool"`
}

func (p *ImagePool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{ByPool: map[string]int{}}
	s.Curated = len(p.unusedIn(curatedPool, ""))
	s.Generated = len(p.unusedIn(generatedPool, ""))
	s.ByPool[curatedPool] = s.Curated
	s.ByPool[generatedPool] = s.Generated
	s.Used = p.countUsed()
	return s
}

func (p *ImagePool) countUsed() int {
	total := 0
	_ = filepath.WalkDir(p.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == config.UsedDirName {
			if imageExtensions[strings.ToLower(filepath.Ext(path))] {
				total++
			}
		}
		return nil
	})
	return total
}

func excludedDir(name string) bool {
	return name == config.UsedDirName || name == config.ArchiveDirName
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
