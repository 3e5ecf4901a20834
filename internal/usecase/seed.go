package usecase

import (
	"context"
	"fmt"
	"priceparser/internal/ports"

	"github.com/rs/zerolog"
)

// DemoURLs are inserted into an empty store so a fresh install has work.
var DemoURLs = []string{
	"https://example.com/product/1",
	"https://example.com/product/2",
	"https://example.com/product/3",
	"https://example.org/item/42",
	"https://shop.example.net/goods/100500",
}

type Seeder struct {
	Tasks ports.TaskStore
	URLs  []string
	Log   zerolog.Logger
}

// Seed inserts the demo URLs when the store holds no task at all and
// returns how many were created.
func (s Seeder) Seed(ctx context.Context) (int, error) {
	n, err := s.Tasks.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	if n > 0 {
		s.Log.Info().Int64("existing", n).Msg("parsing tasks already exist, skipping seeding")
		return 0, nil
	}

	urls := s.URLs
	if urls == nil {
		urls = DemoURLs
	}
	sub := Submitter{Tasks: s.Tasks}
	for i, u := range urls {
		if _, err := sub.Submit(ctx, u); err != nil {
			return i, fmt.Errorf("seed %s: %w", u, err)
		}
	}
	s.Log.Info().Int("count", len(urls)).Msg("initialized parsing tasks with demo URLs")
	return len(urls), nil
}
