// Package inspire pulls optional theme hints from an RSS feed so quote
// generation can ride current topics instead of repeating itself.
package inspire

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
)

// ThemeProvider fetches a feed and serves item titles as theme hints.
// Results are cached briefly; a feed outage degrades to no hint, never to a
// failed run.
type ThemeProvider struct {
	feedURL string
	parser  *gofeed.Parser
	rng     *rand.Rand

	mu        sync.Mutex
	titles    []string
	fetchedAt time.Time
	ttl       time.Duration
}

func NewThemeProvider(feedURL string) *ThemeProvider {
	return &ThemeProvider{
		feedURL: feedURL,
		parser:  gofeed.NewParser(),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		ttl:     time.Hour,
	}
}

// Theme returns one random recent item title, or "" when no feed is
// configured or reachable.
func (p *ThemeProvider) Theme(ctx context.Context) string {
	if p == nil || p.feedURL == "" {
		return ""
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if time.Since(p.fetchedAt) > p.ttl {
		if err := p.refreshLocked(ctx); err != nil {
			log.Printf("warning: theme feed fetch failed: %v", err)
		}
	}
	if len(p.titles) == 0 {
		return ""
	}
	return p.titles[p.rng.Intn(len(p.titles))]
}

func (p *ThemeProvider) refreshLocked(ctx context.Context) error {
	feed, err := p.parser.ParseURLWithContext(p.feedURL, ctx)
	if err != nil {
		return err
	}

	titles := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Title != "" {
			titles = append(titles, item.Title)
		}
		if len(titles) == 20 {
			break
		}
	}

	p.titles = titles
	p.fetchedAt = time.Now()
	log.Printf("theme feed refreshed: %d candidate themes", len(titles))
	return nil
}
