package main

import (
	"context"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

func testArguments() *Arguments {
	return &Arguments{
		Width: 320, Height: 240,
		Margin:    0.05,
		Style:     "none",
		BgColor:   color.RGBA{40, 40, 40, 255},
		PathColor: color.RGBA{255, 0, 0, 255},
		PointSize: 3, LineWidth: 3,
		FPS: 5, Duration: time.Second,
	}
}

func testScene(t *testing.T) *Scene {
	t.Helper()
	act := parseSample(t, sampleGPX)
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("parse font: %v", err)
	}
	scene, err := BuildScene(context.Background(), act, testArguments(), font, nil)
	if err != nil {
		t.Fatalf("BuildScene: %v", err)
	}
	return scene
}

func TestRenderStaticSize(t *testing.T) {
	scene := testScene(t)
	img := scene.RenderStatic()
	b := img.Bounds()
	if b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("image size = %dx%d, want 320x240", b.Dx(), b.Dy())
	}
}

func TestRenderStaticWithSpeeds(t *testing.T) {
	scene := testScene(t)
	scene.Elapsed = Elapsed(scene.Act.Points)
	speeds, err := ComputeSpeeds(scene.Act.Points)
	if err != nil {
		t.Fatalf("ComputeSpeeds: %v", err)
	}
	scene.Lo, scene.Hi = ClampSpeeds(speeds, 2, 6)
	scene.Speeds = speeds
	img := scene.RenderStatic()
	if img.Bounds().Dx() != 320 {
		t.Errorf("unexpected size %v", img.Bounds())
	}
}

func TestEquirectProjectCorners(t *testing.T) {
	bb := Bounds{MinLon: 0, MaxLon: 10, MinLat: 0, MaxLat: 10}
	proj := equirectProject(bb, 100, 200)
	tests := []struct {
		lon, lat float64
		x, y     float64
	}{
		{0, 10, 0, 0},      // top-left
		{10, 0, 100, 200},  // bottom-right
		{5, 5, 50, 100},    // center
	}
	for _, tt := range tests {
		x, y := proj(tt.lon, tt.lat)
		if math.Abs(x-tt.x) > 1e-9 || math.Abs(y-tt.y) > 1e-9 {
			t.Errorf("proj(%v,%v) = (%v,%v), want (%v,%v)", tt.lon, tt.lat, x, y, tt.x, tt.y)
		}
	}
}

func TestNiceStep(t *testing.T) {
	tests := []struct{ span, want float64 }{
		{0.004, 0.001},
		{0.02, 0.005},
		{0.1, 0.05},
		{4, 1},
		{40, 10},
	}
	for _, tt := range tests {
		if got := niceStep(tt.span); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("niceStep(%v) = %v, want %v", tt.span, got, tt.want)
		}
	}
}

func TestBuildSceneDegenerateBounds(t *testing.T) {
	const stationary = `<?xml version="1.0"?>
<gpx version="1.1" creator="test">
  <trk><trkseg>
    <trkpt lat="45" lon="6"><time>2020-06-01T09:00:00Z</time></trkpt>
    <trkpt lat="45" lon="6"><time>2020-06-01T09:01:00Z</time></trkpt>
  </trkseg></trk>
</gpx>`
	act := parseSample(t, stationary)
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	scene, err := BuildScene(context.Background(), act, testArguments(), font, nil)
	if err != nil {
		t.Fatalf("BuildScene: %v", err)
	}
	if scene.BBox.MaxLon <= scene.BBox.MinLon || scene.BBox.MaxLat <= scene.BBox.MinLat {
		t.Errorf("degenerate bbox not expanded: %+v", scene.BBox)
	}
	x, y := scene.Project(6, 45)
	if math.IsNaN(x) || math.IsNaN(y) {
		t.Errorf("projection produced NaN for stationary track")
	}
}
