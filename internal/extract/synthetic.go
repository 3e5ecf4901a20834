// Package extract turns a product URL into a Product. The synthetic
// extractor derives the name from the URL and invents a price; real page
// parsing plugs in behind ports.Extractor.
package extract

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	DefaultEnrichmentTimeout = 1000 * time.Millisecond

	placeholderName = "Product from URL"
)

var _ ports.Extractor = (*Synthetic)(nil)

type Config struct {
	PriceMin          decimal.Decimal
	PriceMax          decimal.Decimal
	EnrichmentTimeout time.Duration
}

type Synthetic struct {
	minCents int64
	maxCents int64
	timeout  time.Duration
	enrich   ports.EnrichmentSource
	log      zerolog.Logger
	now      func() time.Time
}

// New builds the extractor. A nil enrich source disables enrichment; a
// reversed price range is swapped. Bounds are narrowed to whole cents, and a
// range holding no whole cent collapses to its lowest cent above PriceMin.
func New(cfg Config, enrich ports.EnrichmentSource, logger zerolog.Logger) *Synthetic {
	pmin, pmax := cfg.PriceMin, cfg.PriceMax
	if pmin.GreaterThan(pmax) {
		pmin, pmax = pmax, pmin
	}
	lo := pmin.Shift(2).Ceil().IntPart()
	hi := max(pmax.Shift(2).Floor().IntPart(), lo)
	timeout := cfg.EnrichmentTimeout
	if timeout <= 0 {
		timeout = DefaultEnrichmentTimeout
	}
	return &Synthetic{
		minCents: max(lo, 0),
		maxCents: max(hi, 0),
		timeout:  timeout,
		enrich:   enrich,
		log:      logger,
		now:      time.Now,
	}
}

func (s *Synthetic) Extract(ctx context.Context, rawURL string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("extract %s: %w", rawURL, err)
	}

	p := domain.Product{
		Name:            NameFromURL(rawURL),
		Description:     "Demo product parsed from " + rawURL,
		Price:           s.price(),
		PublicationDate: s.now(),
		SourceURL:       rawURL,
	}

	if info, ok := s.lookup(ctx, rawURL); ok {
		extra := fmt.Sprintf(" [external category=%s, rating=%s, currency=%s]",
			orNull(info.Category), rating(info.Rating), orNull(info.Currency))
		p.Description += extra
		s.log.Debug().Str("url", rawURL).Str("enrichment", extra).Msg("product enriched")
	}
	return p, nil
}

// price draws a uniform amount in cents, so the result always has two
// fractional digits.
func (s *Synthetic) price() decimal.Decimal {
	cents := s.minCents + rand.Int64N(s.maxCents-s.minCents+1)
	return decimal.New(cents, -2)
}

// lookup bounds the enrichment call even when the source ignores ctx.
func (s *Synthetic) lookup(ctx context.Context, rawURL string) (domain.EnrichmentInfo, bool) {
	if s.enrich == nil {
		return domain.EnrichmentInfo{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		info domain.EnrichmentInfo
		ok   bool
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Warn().Str("url", rawURL).Interface("panic", r).Msg("enrichment lookup panicked")
				ch <- result{}
			}
		}()
		info, ok := s.enrich.Lookup(ctx, rawURL)
		ch <- result{info: info, ok: ok}
	}()

	select {
	case r := <-ch:
		return r.info, r.ok
	case <-ctx.Done():
		s.log.Warn().Str("url", rawURL).Dur("timeout", s.timeout).Msg("enrichment lookup timed out")
		return domain.EnrichmentInfo{}, false
	}
}

// NameFromURL uses the last path segment with dashes and underscores turned
// into spaces and the first letter capitalized. Without a path it falls back
// to the host.
func NameFromURL(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	u, err := url.Parse(raw)
	if err != nil || !wellFormed(raw, u) {
		return placeholderName
	}

	segment := ""
	parts := strings.Split(u.Path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if strings.TrimSpace(parts[i]) != "" {
			segment = parts[i]
			break
		}
	}
	if segment == "" {
		if u.Hostname() == "" {
			return placeholderName
		}
		return "Product from " + u.Hostname()
	}

	name := strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// wellFormed rejects input url.Parse accepts but a strict URI parser refuses.
func wellFormed(raw string, u *url.URL) bool {
	if u.Scheme == "" || u.Host == "" {
		return false
	}
	return utf8.ValidString(raw) && !strings.ContainsAny(raw, " \t")
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

func rating(r *float64) string {
	if r == nil {
		return "null"
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}
