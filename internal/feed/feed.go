// Package feed supplies external match data to the sync coordinator.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/config"
	"worldcup-betting/internal/model"
)

// Provider returns the latest known state of every match.
type Provider interface {
	Fetch(ctx context.Context) ([]model.MatchPatch, error)
}

// New selects the HTTP provider when a URL is configured, the file provider otherwise.
func New(cfg *config.FeedConfig) Provider {
	if cfg.URL != "" {
		return NewHTTPProvider(cfg.URL, cfg.Timeout)
	}
	return NewFileProvider(cfg.Path)
}

// FileProvider reads a JSON array of matches from disk. A missing file is an
// empty feed, not an error.
type FileProvider struct {
	path string
}

// NewFileProvider creates a FileProvider for path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Fetch implements Provider.
func (p *FileProvider) Fetch(ctx context.Context) ([]model.MatchPatch, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", p.path).Msg("Feed file not found, treating as empty")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}
	return Decode(data)
}

// HTTPProvider fetches a JSON array of matches from an HTTP endpoint.
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider creates an HTTPProvider with the given request timeout.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{url: url, client: &http.Client{Timeout: timeout}}
}

// Fetch implements Provider.
func (p *HTTPProvider) Fetch(ctx context.Context) ([]model.MatchPatch, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}
	return Decode(data)
}

// Decode parses a feed document.
func Decode(data []byte) ([]model.MatchPatch, error) {
	var patches []model.MatchPatch
	if err := json.Unmarshal(data, &patches); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return patches, nil
}

// Static serves a fixed feed. Useful for on-demand syncs with caller-supplied data.
type Static []model.MatchPatch

// Fetch implements Provider.
func (s Static) Fetch(context.Context) ([]model.MatchPatch, error) {
	return s, nil
}
