package tiles

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	_ "image/jpeg"
	_ "image/png"
)

// Fetcher downloads tiles with a shared rate limit and keeps the raw bytes
// in an on-disk cache so repeated renders of the same area are free.
type Fetcher struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	CacheDir   string
	UserAgent  string
	MaxRetries int
}

func NewFetcher(cacheDir string, rps float64, burst int, timeout time.Duration) (*Fetcher, error) {
	if cacheDir == "" {
		cacheDir = ".tile-cache"
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, err
	}
	return &Fetcher{
		Client:     &http.Client{Timeout: timeout},
		Limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		CacheDir:   cacheDir,
		UserAgent:  "gpx-activity-map/1.0 (+https://openstreetmap.org)",
		MaxRetries: 3,
	}, nil
}

func (f *Fetcher) cachePath(u string) string {
	sum := sha1.Sum([]byte(u))
	id := hex.EncodeToString(sum[:])
	return filepath.Join(f.CacheDir, id[:2], id+".tile")
}

// Fetch returns the raw bytes for one tile, from cache when possible.
func (f *Fetcher) Fetch(ctx context.Context, s Style, z, x, y int) ([]byte, error) {
	u, err := s.FillURL(z, x, y)
	if err != nil {
		return nil, err
	}
	cp := f.cachePath(u)
	if b, err := os.ReadFile(cp); err == nil {
		return b, nil
	}
	if err := os.MkdirAll(filepath.Dir(cp), 0o755); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < f.MaxRetries; attempt++ {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := f.download(ctx, u, s.Headers)
		if err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(200+attempt*300) * time.Millisecond):
			}
			continue
		}
		// some servers answer errors as HTML with status 200; caching
		// that would poison every later render
		if ct := http.DetectContentType(body); strings.HasPrefix(ct, "image/") {
			tmp := cp + ".tmp"
			if err := os.WriteFile(tmp, body, 0o644); err == nil {
				_ = os.Rename(tmp, cp)
			}
		}
		return body, nil
	}
	return nil, fmt.Errorf("tile %d/%d/%d: %w", z, x, y, lastErr)
}

func (f *Fetcher) download(ctx context.Context, u string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("HTTP %d for %s: %s", resp.StatusCode, u, bytes.TrimSpace(snippet))
	}
	return io.ReadAll(resp.Body)
}

// FetchImage fetches and decodes one tile.
func (f *Fetcher) FetchImage(ctx context.Context, s Style, z, x, y int) (image.Image, error) {
	b, err := f.Fetch(ctx, s, z, x, y)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		// drop whatever got cached so the next run refetches
		if u, uerr := s.FillURL(z, x, y); uerr == nil {
			_ = os.Remove(f.cachePath(u))
		}
		return nil, fmt.Errorf("decode tile %d/%d/%d: %w", z, x, y, err)
	}
	return img, nil
}
