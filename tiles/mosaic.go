package tiles

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"
)

const fetchWorkers = 6

// Mosaic is a basemap image covering exactly a lon/lat bounding box,
// rescaled to the requested output size. Project maps coordinates onto it.
type Mosaic struct {
	Image *image.RGBA
	Zoom  int

	// the bbox actually covered, after expansion to the canvas aspect
	MinLon, MinLat, MaxLon, MaxLat float64

	tlx, tly float64 // world-pixel origin of the bbox at Zoom
	sx, sy   float64 // world pixels -> output pixels
}

// Project returns the output-pixel position of a lon/lat coordinate.
func (m *Mosaic) Project(lon, lat float64) (x, y float64) {
	px, py := LonLatToWorld(lon, lat, m.Zoom)
	return (px - m.tlx) * m.sx, (py - m.tly) * m.sy
}

// BuildMosaic assembles the tiles covering the bbox into a targetW x targetH
// background. onTile, when non-nil, is called once per fetched tile.
func BuildMosaic(
	ctx context.Context,
	f *Fetcher,
	s Style,
	minLon, minLat, maxLon, maxLat float64,
	targetW, targetH int,
	onTile func(),
) (*Mosaic, error) {

	minLon, minLat, maxLon, maxLat = ExpandToAspect(minLon, minLat, maxLon, maxLat, targetW, targetH)
	z := s.ClampZoom(FitZoom(minLon, minLat, maxLon, maxLat, targetW, targetH, s))
	tlx, tly, brx, bry := BBoxWorld(minLon, minLat, maxLon, maxLat, z)
	if brx-tlx < 1 || bry-tly < 1 {
		return nil, fmt.Errorf("degenerate bbox at zoom %d", z)
	}

	tp := s.TilePixels()
	k := float64(tp) / TileSize
	minTX, minTY, maxTX, maxTY := CoveringTiles(minLon, minLat, maxLon, maxLat, z)
	big := image.NewRGBA(image.Rect(0, 0, (maxTX-minTX+1)*tp, (maxTY-minTY+1)*tp))

	type job struct{ x, y int }
	jobs := make(chan job, (maxTX-minTX+1)*(maxTY-minTY+1))
	errCh := make(chan error, 1)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < fetchWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				img, err := f.FetchImage(ctx, s, z, j.x, j.y)
				if err != nil {
					select {
					case errCh <- err:
					default:
					}
					return
				}
				dst := image.Rect((j.x-minTX)*tp, (j.y-minTY)*tp, (j.x-minTX+1)*tp, (j.y-minTY+1)*tp)
				mu.Lock()
				if img.Bounds().Dx() == tp {
					draw.Draw(big, dst, img, img.Bounds().Min, draw.Src)
				} else {
					// server ignored the @2x request, rescale to fit
					xdraw.ApproxBiLinear.Scale(big, dst, img, img.Bounds(), draw.Src, nil)
				}
				mu.Unlock()
				if onTile != nil {
					onTile()
				}
			}
		}()
	}
	for ty := minTY; ty <= maxTY; ty++ {
		for tx := minTX; tx <= maxTX; tx++ {
			jobs <- job{tx, ty}
		}
	}
	close(jobs)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-errCh:
		return nil, err
	case <-done:
	}

	crop := image.Rect(
		int(tlx*k)-minTX*tp,
		int(tly*k)-minTY*tp,
		int(math.Ceil(brx*k))-minTX*tp,
		int(math.Ceil(bry*k))-minTY*tp,
	).Intersect(big.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("bbox crop outside mosaic")
	}

	out := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), big.SubImage(crop), crop, draw.Src, nil)

	return &Mosaic{
		Image:  out,
		Zoom:   z,
		MinLon: minLon, MinLat: minLat, MaxLon: maxLon, MaxLat: maxLat,
		tlx: tlx,
		tly: tly,
		sx:  float64(targetW) / (brx - tlx),
		sy:  float64(targetH) / (bry - tly),
	}, nil
}

// TileCount reports how many tiles BuildMosaic will fetch for a bbox, for
// sizing progress bars before the work starts.
func TileCount(minLon, minLat, maxLon, maxLat float64, targetW, targetH int, s Style) int {
	minLon, minLat, maxLon, maxLat = ExpandToAspect(minLon, minLat, maxLon, maxLat, targetW, targetH)
	z := s.ClampZoom(FitZoom(minLon, minLat, maxLon, maxLat, targetW, targetH, s))
	minTX, minTY, maxTX, maxTY := CoveringTiles(minLon, minLat, maxLon, maxLat, z)
	return (maxTX - minTX + 1) * (maxTY - minTY + 1)
}
