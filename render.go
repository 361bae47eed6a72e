package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"

	"gpx_activity_map/tiles"
)

// projectFn maps lon/lat degrees onto output pixels.
type projectFn func(lon, lat float64) (x, y float64)

// Scene holds everything needed to draw the map once or as animation frames.
type Scene struct {
	Act         *Activity
	Elapsed     []float64 // nil without timestamps
	Speeds      []float64 // clamped to [Lo..Hi], nil without timestamps
	Lo, Hi      float64
	BBox        Bounds
	Base        image.Image
	Project     projectFn
	Attribution string
	Args        *Arguments
	Font        *truetype.Font
}

// BuildScene prepares the background (tile mosaic, user image, or flat
// color) and the matching projection for the padded track bbox.
func BuildScene(ctx context.Context, act *Activity, args *Arguments, font *truetype.Font, bars *Bars) (*Scene, error) {
	bb := act.Bounds.Padded(args.Margin)
	// a single point or a stationary track has no span to project into
	if bb.MaxLon-bb.MinLon < 1e-6 {
		bb.MinLon -= 0.001
		bb.MaxLon += 0.001
	}
	if bb.MaxLat-bb.MinLat < 1e-6 {
		bb.MinLat -= 0.001
		bb.MaxLat += 0.001
	}

	s := &Scene{Act: act, BBox: bb, Args: args, Font: font}

	switch {
	case args.Background != "":
		img, err := loadImageFile(args.Background)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		s.Base = scaleToCanvas(img, args.Width, args.Height)
		s.Project = equirectProject(bb, args.Width, args.Height)

	case args.Style == "" || args.Style == "none":
		flat := image.NewRGBA(image.Rect(0, 0, args.Width, args.Height))
		draw.Draw(flat, flat.Bounds(), &image.Uniform{C: args.BgColor}, image.Point{}, draw.Src)
		s.Base = flat
		s.Project = equirectProject(bb, args.Width, args.Height)

	default:
		style, err := tiles.LookupStyle(args.Style, args.StylesFile)
		if err != nil {
			return nil, err
		}
		style.Retina = style.Retina && args.Retina
		fetcher, err := tiles.NewFetcher(args.CacheDir, args.TileRPS, 2, 20*time.Second)
		if err != nil {
			return nil, fmt.Errorf("tile cache: %w", err)
		}
		if bars != nil {
			bars.Tiles.ChangeMax(tiles.TileCount(bb.MinLon, bb.MinLat, bb.MaxLon, bb.MaxLat, args.Width, args.Height, style))
		}
		onTile := func() {}
		if bars != nil {
			onTile = bars.IncTile
		}
		mosaic, err := tiles.BuildMosaic(ctx, fetcher, style,
			bb.MinLon, bb.MinLat, bb.MaxLon, bb.MaxLat,
			args.Width, args.Height, onTile)
		if err != nil {
			return nil, fmt.Errorf("build mosaic: %w", err)
		}
		s.Base = mosaic.Image
		s.Project = mosaic.Project
		s.Attribution = style.Attribution
		// the mosaic widens the bbox to the canvas aspect; follow it so
		// gridlines span the whole map
		s.BBox = Bounds{
			MinLon: mosaic.MinLon, MaxLon: mosaic.MaxLon,
			MinLat: mosaic.MinLat, MaxLat: mosaic.MaxLat,
		}
	}
	return s, nil
}

// equirectProject is the no-basemap projection: plain linear interpolation
// of lon/lat into the canvas.
func equirectProject(bb Bounds, w, h int) projectFn {
	spanLon := bb.MaxLon - bb.MinLon
	spanLat := bb.MaxLat - bb.MinLat
	return func(lon, lat float64) (float64, float64) {
		x := (lon - bb.MinLon) / spanLon * float64(w)
		y := (1 - (lat-bb.MinLat)/spanLat) * float64(h)
		return x, y
	}
}

// RenderStatic draws the full annotated map.
func (s *Scene) RenderStatic() image.Image {
	dc := s.newCanvas()
	s.drawTrack(dc, len(s.Act.Points))
	s.drawEndpointMarkers(dc)
	s.drawAnnotations(dc)
	return dc.Image()
}

func (s *Scene) newCanvas() *gg.Context {
	dc := gg.NewContext(s.Args.Width, s.Args.Height)
	dc.DrawImage(s.Base, 0, 0)
	return dc
}

// drawTrack draws the first upTo points: speed-colored dots when speed data
// exists, a plain line otherwise.
func (s *Scene) drawTrack(dc *gg.Context, upTo int) {
	pts := s.Act.Points
	if upTo > len(pts) {
		upTo = len(pts)
	}
	if upTo < 2 {
		return
	}
	if s.Speeds != nil {
		for i := 0; i < upTo; i++ {
			x, y := s.Project(pts[i].Lon, pts[i].Lat)
			dc.SetColor(SpeedColor(s.Speeds[i], s.Lo, s.Hi))
			dc.DrawCircle(x, y, s.Args.PointSize)
			dc.Fill()
		}
		return
	}
	dc.SetColor(s.Args.PathColor)
	dc.SetLineWidth(s.Args.LineWidth)
	x0, y0 := s.Project(pts[0].Lon, pts[0].Lat)
	dc.MoveTo(x0, y0)
	for i := 1; i < upTo; i++ {
		x, y := s.Project(pts[i].Lon, pts[i].Lat)
		dc.LineTo(x, y)
	}
	dc.Stroke()
}

func (s *Scene) drawEndpointMarkers(dc *gg.Context) {
	pts := s.Act.Points
	if len(pts) == 0 {
		return
	}
	s.drawMarker(dc, pts[0], color.RGBA{52, 199, 89, 255})
	s.drawMarker(dc, pts[len(pts)-1], color.RGBA{255, 59, 48, 255})
}

func (s *Scene) drawMarker(dc *gg.Context, p TrackPoint, c color.Color) {
	x, y := s.Project(p.Lon, p.Lat)
	r := math.Max(5, s.Args.PointSize*2)
	dc.SetColor(c)
	dc.DrawCircle(x, y, r)
	dc.Fill()
	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.DrawCircle(x, y, r)
	dc.Stroke()
}

// drawAnnotations adds grid, colorbar, title, attribution, and logo.
func (s *Scene) drawAnnotations(dc *gg.Context) {
	if !s.Args.NoGrid {
		s.drawGrid(dc)
	}
	if s.Speeds != nil {
		s.drawColorbar(dc)
	}
	s.drawTitle(dc)
	if s.Attribution != "" {
		s.drawAttribution(dc)
	}
	if s.Args.Logo != "" {
		s.drawLogo(dc)
	}
}

func (s *Scene) drawGrid(dc *gg.Context) {
	w := float64(s.Args.Width)
	h := float64(s.Args.Height)
	labelFace := truetype.NewFace(s.Font, &truetype.Options{Size: 11})
	dc.SetFontFace(labelFace)

	lonStep := niceStep(s.BBox.MaxLon - s.BBox.MinLon)
	for lon := math.Ceil(s.BBox.MinLon/lonStep) * lonStep; lon <= s.BBox.MaxLon; lon += lonStep {
		x, _ := s.Project(lon, s.BBox.MinLat)
		dc.SetRGBA(1, 1, 1, 0.5)
		dc.SetLineWidth(1)
		dc.DrawLine(x, 0, x, h)
		dc.Stroke()
		label := fmt.Sprintf("%.3f°E", lon)
		dc.SetRGB(0.15, 0.15, 0.15)
		dc.DrawStringAnchored(label, x, h-8, 0.5, 0.5)
	}

	latStep := niceStep(s.BBox.MaxLat - s.BBox.MinLat)
	for lat := math.Ceil(s.BBox.MinLat/latStep) * latStep; lat <= s.BBox.MaxLat; lat += latStep {
		_, y := s.Project(s.BBox.MinLon, lat)
		dc.SetRGBA(1, 1, 1, 0.5)
		dc.SetLineWidth(1)
		dc.DrawLine(0, y, w, y)
		dc.Stroke()
		label := fmt.Sprintf("%.4f°N", lat)
		dc.SetRGB(0.15, 0.15, 0.15)
		dc.DrawStringAnchored(label, 6, y-8, 0, 0.5)
	}
}

// niceStep picks a 1/2/5-series step giving roughly four gridlines.
func niceStep(span float64) float64 {
	if span <= 0 {
		return 1
	}
	raw := span / 4
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

func (s *Scene) drawColorbar(dc *gg.Context) {
	w := float64(s.Args.Width)
	h := float64(s.Args.Height)
	barW := 14.0
	barH := h * 0.5
	x := w - barW - 44
	y := (h - barH) / 2

	// white backing so the bar reads on any basemap
	dc.SetRGBA(1, 1, 1, 0.75)
	dc.DrawRoundedRectangle(x-6, y-24, barW+44, barH+48, 4)
	dc.Fill()

	for i := 0; i < int(barH); i++ {
		t := 1 - float64(i)/barH
		dc.SetColor(Viridis(t))
		dc.DrawRectangle(x, y+float64(i), barW, 1)
		dc.Fill()
	}
	dc.SetRGB(0.15, 0.15, 0.15)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, y, barW, barH)
	dc.Stroke()

	labelFace := truetype.NewFace(s.Font, &truetype.Options{Size: 11})
	dc.SetFontFace(labelFace)
	dc.DrawStringAnchored(fmt.Sprintf("%.0f", s.Hi), x+barW+4, y+6, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.0f", s.Lo), x+barW+4, y+barH-6, 0, 0.5)
	dc.DrawStringAnchored("km/h", x+barW/2, y+barH+14, 0.5, 0.5)
}

func (s *Scene) drawTitle(dc *gg.Context) {
	title := s.Act.Name
	if !s.Act.Date.IsZero() {
		title = fmt.Sprintf("%s — %s", s.Act.Name, s.Act.Date.Format("2006-01-02"))
	}
	titleFace := truetype.NewFace(s.Font, &truetype.Options{Size: 18})
	dc.SetFontFace(titleFace)
	tw, th := dc.MeasureString(title)
	dc.SetRGBA(1, 1, 1, 0.75)
	dc.DrawRoundedRectangle(10, 10, tw+20, th+14, 4)
	dc.Fill()
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawString(title, 20, 10+th+4)
}

func (s *Scene) drawAttribution(dc *gg.Context) {
	face := truetype.NewFace(s.Font, &truetype.Options{Size: 9})
	dc.SetFontFace(face)
	w := float64(s.Args.Width)
	h := float64(s.Args.Height)
	tw, th := dc.MeasureString(s.Attribution)
	dc.SetRGBA(1, 1, 1, 0.6)
	dc.DrawRectangle(w-tw-8, h-th-6, tw+8, th+6)
	dc.Fill()
	dc.SetRGB(0.2, 0.2, 0.2)
	dc.DrawString(s.Attribution, w-tw-4, h-5)
}

func (s *Scene) drawLogo(dc *gg.Context) {
	img, err := loadImageFile(s.Args.Logo)
	if err != nil {
		// a missing logo should not kill the render
		return
	}
	maxW := float64(s.Args.Width) * 0.15
	scale := maxW / float64(img.Bounds().Dx())
	if scale > 1 {
		scale = 1
	}
	lw := int(float64(img.Bounds().Dx()) * scale)
	lh := int(float64(img.Bounds().Dy()) * scale)
	scaled := scaleToCanvas(img, lw, lh)
	dc.DrawImage(scaled, 10, s.Args.Height-lh-10)
}

func loadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func scaleToCanvas(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
