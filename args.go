package main

import (
	"flag"
	"fmt"
	"image/color"
	"sort"
	"strings"
	"time"

	"gpx_activity_map/tiles"
)

type Arguments struct {
	GpxFile    string
	OutputFile string
	Width      int
	Height     int
	Margin     float64

	Style      string
	StylesFile string
	CacheDir   string
	TileRPS    float64
	Retina     bool

	Background string
	Logo       string
	BgColor    color.Color
	PathColor  color.Color
	PointSize  float64
	LineWidth  float64

	VMin   float64
	VMax   float64
	Smooth float64
	NoTime bool
	NoGrid bool

	Animate  bool
	FPS      float64
	Duration time.Duration
	Workers  int

	Timeout time.Duration
}

func parseArguments() (*Arguments, error) {
	args := &Arguments{}
	var bgStr, pathStr string

	styleNames := tiles.StyleNames()
	sort.Strings(styleNames)

	flag.StringVar(&args.GpxFile, "gpx", "", "Path to the GPX file (required).")
	flag.StringVar(&args.OutputFile, "o", "", "Output file (default map.png, or map.gif with -animate).")
	flag.IntVar(&args.Width, "width", 800, "Output width in pixels.")
	flag.IntVar(&args.Height, "height", 600, "Output height in pixels.")
	flag.Float64Var(&args.Margin, "margin", 0.05, "Padding around the track bbox as a fraction of its span [0..0.25).")
	flag.StringVar(&args.Style, "style", "osm", "Basemap tile style ("+strings.Join(styleNames, ", ")+"), or \"none\".")
	flag.StringVar(&args.StylesFile, "styles-file", "", "YAML file with extra tile styles.")
	flag.StringVar(&args.CacheDir, "cache-dir", ".tile-cache", "Tile cache directory.")
	flag.Float64Var(&args.TileRPS, "tile-rps", 8, "Tile download rate limit (requests per second).")
	flag.BoolVar(&args.Retina, "2x", false, "Request @2x tiles when the style supports it.")
	flag.StringVar(&args.Background, "background", "", "Image file to use as background instead of tiles.")
	flag.StringVar(&args.Logo, "logo", "", "Image file drawn in the bottom-left corner.")
	flag.StringVar(&bgStr, "bg", "#2b2b2b", "Background color when no basemap is used (hex).")
	flag.StringVar(&pathStr, "path-color", "#ff3b30", "Track color when speed coloring is off (hex).")
	flag.Float64Var(&args.PointSize, "point-size", 3, "Radius of speed-colored track points.")
	flag.Float64Var(&args.LineWidth, "line-width", 3, "Width of the track line when speed coloring is off.")
	flag.Float64Var(&args.VMin, "vmin", 2, "Lower speed bound of the color scale (km/h).")
	flag.Float64Var(&args.VMax, "vmax", 6, "Upper speed bound of the color scale (km/h). vmin=vmax=0 uses the track range.")
	flag.Float64Var(&args.Smooth, "smooth", 0.2, "Speed low-pass cutoff as a fraction of Nyquist (0 disables).")
	flag.BoolVar(&args.NoTime, "no-time", false, "Allow GPX files without timestamps (disables speed coloring).")
	flag.BoolVar(&args.NoGrid, "no-grid", false, "Skip coordinate gridlines.")
	flag.BoolVar(&args.Animate, "animate", false, "Write an animated GIF of the track drawing in.")
	flag.Float64Var(&args.FPS, "fps", 20, "Animation frames per second.")
	flag.DurationVar(&args.Duration, "duration", 10*time.Second, "Animation length.")
	flag.IntVar(&args.Workers, "workers", 0, "Frame render workers (0 = NumCPU).")
	flag.DurationVar(&args.Timeout, "timeout", 10*time.Minute, "Hard timeout for the whole run.")
	flag.Parse()

	if args.GpxFile == "" {
		return nil, fmt.Errorf("-gpx is required")
	}
	if args.Width < 64 || args.Width > 4096 || args.Height < 64 || args.Height > 4096 {
		return nil, fmt.Errorf("bad size %dx%d (expected 64..4096)", args.Width, args.Height)
	}
	if args.Margin < 0 || args.Margin >= 0.25 {
		return nil, fmt.Errorf("margin must be in [0..0.25), got %.3f", args.Margin)
	}
	if args.VMax < args.VMin {
		return nil, fmt.Errorf("vmax (%.1f) must be >= vmin (%.1f)", args.VMax, args.VMin)
	}
	if args.Animate && args.FPS <= 0 {
		return nil, fmt.Errorf("fps must be > 0")
	}
	args.OutputFile = defaultOutput(args.OutputFile, args.Animate)

	var err error
	if args.BgColor, err = ParseHexColor(bgStr); err != nil {
		return nil, fmt.Errorf("bg: %w", err)
	}
	if args.PathColor, err = ParseHexColor(pathStr); err != nil {
		return nil, fmt.Errorf("path-color: %w", err)
	}
	return args, nil
}

// defaultOutput picks the output name when -o is not given: the animated
// path writes a GIF, so the default extension has to follow the mode.
func defaultOutput(out string, animate bool) string {
	if out != "" {
		return out
	}
	if animate {
		return "map.gif"
	}
	return "map.png"
}
