package main

import (
	"errors"
	"math"
)

const webMercatorRadius = 6378137.0

// projectMeters converts lon/lat degrees to EPSG:3857 meters.
func projectMeters(lon, lat float64) (x, y float64) {
	x = webMercatorRadius * lon * math.Pi / 180
	lat = math.Min(85.05112878, math.Max(-85.05112878, lat))
	y = webMercatorRadius * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return
}

// Elapsed returns seconds since the first point for every point.
func Elapsed(points []TrackPoint) []float64 {
	out := make([]float64, len(points))
	if len(points) == 0 {
		return out
	}
	t0 := points[0].Time
	for i, p := range points {
		out[i] = p.Time.Sub(t0).Seconds()
	}
	return out
}

// gradient differentiates vals against the (possibly non-uniformly spaced)
// coordinate t: second-order central differences in the interior, one-sided
// at the ends. Duplicate coordinates fall back to the usable side.
func gradient(vals, t []float64) []float64 {
	n := len(vals)
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	twoPoint := func(i, j int) float64 {
		dt := t[j] - t[i]
		if dt == 0 {
			return 0
		}
		return (vals[j] - vals[i]) / dt
	}
	out[0] = twoPoint(0, 1)
	out[n-1] = twoPoint(n-2, n-1)
	for i := 1; i < n-1; i++ {
		hd := t[i] - t[i-1]
		hs := t[i+1] - t[i]
		switch {
		case hd == 0 && hs == 0:
			out[i] = out[i-1]
		case hd == 0:
			out[i] = twoPoint(i, i+1)
		case hs == 0:
			out[i] = twoPoint(i-1, i)
		default:
			a := -hs / (hd * (hd + hs))
			b := (hs - hd) / (hd * hs)
			c := hd / (hs * (hd + hs))
			out[i] = a*vals[i-1] + b*vals[i] + c*vals[i+1]
		}
	}
	return out
}

// ComputeSpeeds derives per-point speed in km/h: points are projected to
// mercator meters and the velocity vector is the gradient of the projected
// coordinates against elapsed time.
func ComputeSpeeds(points []TrackPoint) ([]float64, error) {
	if len(points) < 2 {
		return nil, errors.New("need at least two points to derive speed")
	}
	t := Elapsed(points)
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = projectMeters(p.Lon, p.Lat)
	}
	vx := gradient(xs, t)
	vy := gradient(ys, t)
	out := make([]float64, len(points))
	for i := range out {
		out[i] = math.Hypot(vx[i], vy[i]) * 3.6
	}
	return out, nil
}

// ClampSpeeds limits speeds to [vmin, vmax] in place and returns the bounds
// actually used. A vmin == vmax == 0 pair means "use the track's own range".
func ClampSpeeds(speeds []float64, vmin, vmax float64) (lo, hi float64) {
	if vmin == 0 && vmax == 0 {
		lo, hi = math.MaxFloat64, -math.MaxFloat64
		for _, v := range speeds {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
		if lo > hi {
			lo, hi = 0, 1
		}
		if hi == lo {
			hi = lo + 1
		}
		return lo, hi
	}
	for i, v := range speeds {
		if v < vmin {
			speeds[i] = vmin
		}
		if v > vmax {
			speeds[i] = vmax
		}
	}
	return vmin, vmax
}
