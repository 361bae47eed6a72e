package tiles

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func tilePNG(t *testing.T, c color.Color, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	f, err := NewFetcher(t.TempDir(), 1000, 100, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFetchCachesOnDisk(t *testing.T) {
	var hits atomic.Int64
	data := tilePNG(t, color.RGBA{10, 20, 30, 255}, TileSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(data)
	}))
	defer srv.Close()

	f := testFetcher(t)
	s := Style{Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 19}

	for i := 0; i < 3; i++ {
		b, err := f.Fetch(context.Background(), s, 10, 1, 2)
		if err != nil {
			t.Fatalf("Fetch #%d: %v", i, err)
		}
		if !bytes.Equal(b, data) {
			t.Fatalf("Fetch #%d returned wrong bytes", i)
		}
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1 (cache miss only)", n)
	}
}

func TestFetchDistinctTilesDistinctEntries(t *testing.T) {
	red := tilePNG(t, color.RGBA{255, 0, 0, 255}, TileSize)
	blue := tilePNG(t, color.RGBA{0, 0, 255, 255}, TileSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/3/1/1.png" {
			w.Write(red)
			return
		}
		w.Write(blue)
	}))
	defer srv.Close()

	f := testFetcher(t)
	s := Style{Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 19}

	a, err := f.Fetch(context.Background(), s, 3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Fetch(context.Background(), s, 3, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Error("different tiles returned identical cached bytes")
	}
	// and the cache serves each back correctly
	srv.Close()
	a2, err := f.Fetch(context.Background(), s, 3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, a2) {
		t.Error("cached bytes differ from original response")
	}
}

func TestNonImageResponseNotCached(t *testing.T) {
	var hits atomic.Int64
	good := tilePNG(t, color.RGBA{1, 2, 3, 255}, TileSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			// an error page delivered with status 200
			w.Write([]byte("<html><body>tile unavailable</body></html>"))
			return
		}
		w.Write(good)
	}))
	defer srv.Close()

	f := testFetcher(t)
	s := Style{Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 19}

	if _, err := f.FetchImage(context.Background(), s, 8, 4, 4); err == nil {
		t.Fatal("expected decode error for HTML body")
	}
	// the bad body must not poison the cache: the retry refetches
	img, err := f.FetchImage(context.Background(), s, 8, 4, 4)
	if err != nil {
		t.Fatalf("FetchImage after bad response: %v", err)
	}
	if img.Bounds().Dx() != TileSize {
		t.Errorf("tile width = %d", img.Bounds().Dx())
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hit %d times, want 2", n)
	}
}

func TestFetchRetriesThenFails(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := testFetcher(t)
	f.MaxRetries = 2
	s := Style{Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 19}

	if _, err := f.Fetch(context.Background(), s, 1, 0, 0); err == nil {
		t.Fatal("expected error after retries")
	}
	if n := hits.Load(); n != 2 {
		t.Errorf("server hit %d times, want 2 retries", n)
	}
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := testFetcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := Style{Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 19}
	if _, err := f.Fetch(ctx, s, 1, 0, 0); err == nil {
		t.Fatal("expected context error")
	}
}

func TestFetchSendsHeaders(t *testing.T) {
	var gotUA, gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotRef = r.Header.Get("Referer")
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := testFetcher(t)
	s := Style{
		Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 19,
		Headers: map[string]string{"Referer": "https://example.com/"},
	}
	if _, err := f.Fetch(context.Background(), s, 1, 0, 0); err != nil {
		t.Fatal(err)
	}
	if gotUA == "" {
		t.Error("User-Agent not sent")
	}
	if gotRef != "https://example.com/" {
		t.Errorf("Referer = %q", gotRef)
	}
}

func TestFetchImageDecodes(t *testing.T) {
	data := tilePNG(t, color.RGBA{200, 100, 50, 255}, TileSize)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	f := testFetcher(t)
	s := Style{Name: "test", URL: srv.URL + "/{z}/{x}/{y}.png", MaxZoom: 19}
	img, err := f.FetchImage(context.Background(), s, 5, 3, 4)
	if err != nil {
		t.Fatalf("FetchImage: %v", err)
	}
	if img.Bounds().Dx() != TileSize {
		t.Errorf("tile width = %d", img.Bounds().Dx())
	}
}
