// Package enrichment calls the external product info service:
//
//	GET {base}/api/product-info?url={productURL}
//
// Every failure is reported as an absent result.
package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"priceparser/internal/config"
	"priceparser/internal/domain"
	"priceparser/internal/ports"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const productInfoPath = "/api/product-info"

// maxBody caps how much of a response is decoded.
const maxBody = 64 << 10

var (
	_ ports.EnrichmentSource = (*Client)(nil)
	_ ports.EnrichmentSource = Disabled{}
)

// Disabled is the source used when the service is switched off.
type Disabled struct{}

func (Disabled) Lookup(context.Context, string) (domain.EnrichmentInfo, bool) {
	return domain.EnrichmentInfo{}, false
}

type Client struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

// New returns Disabled unless cfg.Enabled is set.
func New(cfg config.External, logger zerolog.Logger) ports.EnrichmentSource {
	if !cfg.Enabled {
		logger.Debug().Msg("external product info service is disabled")
		return Disabled{}
	}
	return NewClient(cfg.BaseURL, cfg.Timeout, logger)
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  logger,
	}
}

func (c *Client) Lookup(ctx context.Context, productURL string) (domain.EnrichmentInfo, bool) {
	info, err := c.fetch(ctx, productURL)
	if err != nil {
		c.log.Warn().Err(err).Str("url", productURL).Msg("failed to fetch external info")
		return domain.EnrichmentInfo{}, false
	}
	return info, true
}

func (c *Client) fetch(ctx context.Context, productURL string) (domain.EnrichmentInfo, error) {
	endpoint := c.base + productInfoPath + "?" + url.Values{"url": {productURL}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.EnrichmentInfo{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.EnrichmentInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return domain.EnrichmentInfo{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var info domain.EnrichmentInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&info); err != nil {
		return domain.EnrichmentInfo{}, fmt.Errorf("decode response: %w", err)
	}
	return info, nil
}
