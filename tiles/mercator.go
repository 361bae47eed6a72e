package tiles

import "math"

// TileSize is the logical tile edge in web-mercator world pixels.
const TileSize = 256

const maxMercatorLat = 85.05112878

// mercX/mercY map lon/lat degrees onto the normalized [0..1] mercator square.
func mercX(lon float64) float64 { return (lon + 180.0) / 360.0 }

func mercY(lat float64) float64 {
	lat = math.Min(maxMercatorLat, math.Max(-maxMercatorLat, lat))
	s := math.Sin(lat * math.Pi / 180.0)
	y := 0.5 - math.Log((1+s)/(1-s))/(4*math.Pi)
	// cancellation at the clamp latitude can push y a hair outside [0,1],
	// which would floor to tile row -1 downstream
	return math.Min(1, math.Max(0, y))
}

// invMercY maps normalized [0..1] mercator y back to latitude degrees.
func invMercY(y float64) float64 {
	return math.Atan(math.Sinh(math.Pi*(1-2*y))) * 180 / math.Pi
}

func worldSize(z int) float64 { return float64(TileSize) * math.Exp2(float64(z)) }

// LonLatToWorld returns world-pixel coordinates at zoom z.
func LonLatToWorld(lon, lat float64, z int) (px, py float64) {
	ws := worldSize(z)
	return mercX(lon) * ws, mercY(lat) * ws
}

// BBoxWorld returns the top-left and bottom-right world-pixel corners of a
// lon/lat bounding box at zoom z. Top-left uses maxLat, bottom-right minLat.
func BBoxWorld(minLon, minLat, maxLon, maxLat float64, z int) (tlx, tly, brx, bry float64) {
	tlx, tly = LonLatToWorld(minLon, maxLat, z)
	brx, bry = LonLatToWorld(maxLon, minLat, z)
	return
}

// CoveringTiles returns the inclusive tile index range covering the bbox.
func CoveringTiles(minLon, minLat, maxLon, maxLat float64, z int) (minTX, minTY, maxTX, maxTY int) {
	tlx, tly, brx, bry := BBoxWorld(minLon, minLat, maxLon, maxLat, z)
	minTX = int(math.Floor(tlx / TileSize))
	minTY = int(math.Floor(tly / TileSize))
	maxTX = int(math.Floor((brx - 1) / TileSize))
	maxTY = int(math.Floor((bry - 1) / TileSize))
	if maxTX < minTX {
		maxTX = minTX
	}
	if maxTY < minTY {
		maxTY = minTY
	}
	return
}

// ExpandToAspect grows the bbox symmetrically in mercator space until its
// aspect ratio matches a targetW x targetH canvas, so drawing it there needs
// no anisotropic stretch. The input box is always contained in the result.
func ExpandToAspect(minLon, minLat, maxLon, maxLat float64, targetW, targetH int) (float64, float64, float64, float64) {
	if targetW <= 0 || targetH <= 0 {
		return minLon, minLat, maxLon, maxLat
	}
	x0, x1 := mercX(minLon), mercX(maxLon)
	y0, y1 := mercY(maxLat), mercY(minLat) // y grows southward
	w := x1 - x0
	h := y1 - y0
	if w <= 0 || h <= 0 {
		return minLon, minLat, maxLon, maxLat
	}
	want := float64(targetW) / float64(targetH)
	switch {
	case w/h < want: // too narrow, widen
		pad := (h*want - w) / 2
		x0 = math.Max(0, x0-pad)
		x1 = math.Min(1, x1+pad)
		minLon = x0*360 - 180
		maxLon = x1*360 - 180
	case w/h > want: // too flat, heighten
		pad := (w/want - h) / 2
		y0 = math.Max(0, y0-pad)
		y1 = math.Min(1, y1+pad)
		maxLat = invMercY(y0)
		minLat = invMercY(y1)
	}
	return minLon, minLat, maxLon, maxLat
}

// FitZoom picks the largest zoom at which the bbox still fits into a
// targetW x targetH pixel canvas.
func FitZoom(minLon, minLat, maxLon, maxLat float64, targetW, targetH int, s Style) int {
	for z := s.MaxZoom; z > s.MinZoom; z-- {
		tlx, tly, brx, bry := BBoxWorld(minLon, minLat, maxLon, maxLat, z)
		if int(math.Ceil(brx-tlx)) <= targetW && int(math.Ceil(bry-tly)) <= targetH {
			return z
		}
	}
	return s.MinZoom
}
