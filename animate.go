package main

import (
	"context"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"math"
	"runtime"
	"sort"
	"sync"
)

// RenderAnimation renders the track drawing in over time as GIF frames.
// Frames are rendered by a worker pool and collected by index, so the
// output order never depends on scheduling.
func RenderAnimation(ctx context.Context, s *Scene, bars *Bars) (*gif.GIF, error) {
	total := int(math.Max(2, s.Args.FPS*s.Args.Duration.Seconds()))
	delay := int(math.Max(2, math.Round(100/s.Args.FPS)))
	if bars != nil {
		bars.SetFrames(total)
	}

	workers := s.Args.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	frames := make([]*image.Paletted, total)
	// buffered for the whole run so workers bailing out on cancellation
	// never strands the producer
	tasks := make(chan int, total)
	for fi := 0; fi < total; fi++ {
		tasks <- fi
	}
	close(tasks)

	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fi := range tasks {
				select {
				case <-ctx.Done():
					select {
					case errCh <- ctx.Err():
					default:
					}
					return
				default:
				}
				frames[fi] = palettize(s.renderFrame(fi, total))
				if bars != nil {
					bars.IncFrame()
				}
			}
		}()
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	g := &gif.GIF{
		Image:     frames,
		Delay:     make([]int, total),
		LoopCount: 0,
	}
	for i := range g.Delay {
		g.Delay[i] = delay
	}
	return g, nil
}

// renderFrame draws the map with the track revealed up to the frame's share
// of the activity: by elapsed time when timestamps exist, by index otherwise.
func (s *Scene) renderFrame(fi, total int) image.Image {
	frac := float64(fi) / float64(total-1)
	upTo := s.cutoffIndex(frac)
	dc := s.newCanvas()
	s.drawTrack(dc, upTo)
	if upTo > 0 {
		s.drawMarker(dc, s.Act.Points[upTo-1], s.Args.PathColor)
	}
	s.drawAnnotations(dc)
	return dc.Image()
}

// cutoffIndex converts a progress fraction into a point count.
func (s *Scene) cutoffIndex(frac float64) int {
	pts := s.Act.Points
	if frac >= 1 {
		return len(pts)
	}
	if s.Elapsed == nil {
		return int(math.Ceil(frac * float64(len(pts))))
	}
	target := frac * s.Elapsed[len(s.Elapsed)-1]
	return sort.SearchFloat64s(s.Elapsed, target) + 1
}

func palettize(img image.Image) *image.Paletted {
	p := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, image.Point{})
	return p
}

func writeGIF(w io.Writer, g *gif.GIF) error {
	return gif.EncodeAll(w, g)
}
