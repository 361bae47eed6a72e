package tiles

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFillURL(t *testing.T) {
	s := Style{Name: "test", URL: "https://example.com/{z}/{x}/{y}.png"}
	u, err := s.FillURL(12, 2087, 1478)
	if err != nil {
		t.Fatalf("FillURL: %v", err)
	}
	if u != "https://example.com/12/2087/1478.png" {
		t.Errorf("FillURL = %q", u)
	}
}

func TestFillURLEnvExpansion(t *testing.T) {
	t.Setenv("TEST_TILE_KEY", "sekrit")
	s := Style{Name: "test", URL: "https://example.com/{z}/{x}/{y}.png?key=${TEST_TILE_KEY}"}
	u, err := s.FillURL(1, 2, 3)
	if err != nil {
		t.Fatalf("FillURL: %v", err)
	}
	if u != "https://example.com/1/2/3.png?key=sekrit" {
		t.Errorf("FillURL = %q", u)
	}
}

func TestLookupStyleBuiltin(t *testing.T) {
	s, err := LookupStyle("osm", "")
	if err != nil {
		t.Fatalf("LookupStyle: %v", err)
	}
	if s.Attribution == "" {
		t.Error("builtin style without attribution")
	}
}

func TestLookupStyleUnknown(t *testing.T) {
	if _, err := LookupStyle("no-such-style", ""); err == nil {
		t.Fatal("expected error for unknown style")
	}
}

func TestLoadStylesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	content := `
mymap:
  url: "https://tiles.example.com/{z}/{x}/{y}.png"
  attribution: "© Example"
  max_zoom: 16
  headers:
    Referer: "https://example.com/"
plain:
  url: "https://plain.example.com/{z}/{x}/{y}.png"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	styles, err := LoadStyles(path)
	if err != nil {
		t.Fatalf("LoadStyles: %v", err)
	}
	my := styles["mymap"]
	if my.Name != "mymap" || my.MaxZoom != 16 || my.Headers["Referer"] == "" {
		t.Errorf("mymap = %+v", my)
	}
	if styles["plain"].MaxZoom != 19 {
		t.Errorf("missing max_zoom should default to 19, got %d", styles["plain"].MaxZoom)
	}

	// user style resolvable (and shadowing) through LookupStyle
	s, err := LookupStyle("mymap", path)
	if err != nil {
		t.Fatalf("LookupStyle: %v", err)
	}
	if s.Attribution != "© Example" {
		t.Errorf("attribution = %q", s.Attribution)
	}
}

func TestLoadStylesMissingURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "styles.yaml")
	if err := os.WriteFile(path, []byte("bad:\n  attribution: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadStyles(path); err == nil {
		t.Fatal("expected error for style without url")
	}
}

func TestClampZoomAndTilePixels(t *testing.T) {
	s := Style{MinZoom: 2, MaxZoom: 17}
	if got := s.ClampZoom(0); got != 2 {
		t.Errorf("ClampZoom(0) = %d", got)
	}
	if got := s.ClampZoom(20); got != 17 {
		t.Errorf("ClampZoom(20) = %d", got)
	}
	if got := s.ClampZoom(9); got != 9 {
		t.Errorf("ClampZoom(9) = %d", got)
	}
	if s.TilePixels() != 256 {
		t.Errorf("TilePixels = %d", s.TilePixels())
	}
	s.Retina = true
	if s.TilePixels() != 512 {
		t.Errorf("retina TilePixels = %d", s.TilePixels())
	}
}
