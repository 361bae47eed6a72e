package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"
)

// TrackPoint is one normalized GPX track point.
type TrackPoint struct {
	Lon, Lat, Ele float64
	Time          time.Time
}

// Bounds is the geographic bounding box of an activity.
type Bounds struct {
	MinLon, MaxLon float64
	MinLat, MaxLat float64
}

// Padded grows the box by a fraction of its span on every side.
func (b Bounds) Padded(margin float64) Bounds {
	padLon := (b.MaxLon - b.MinLon) * margin
	padLat := (b.MaxLat - b.MinLat) * margin
	return Bounds{
		MinLon: b.MinLon - padLon, MaxLon: b.MaxLon + padLon,
		MinLat: b.MinLat - padLat, MaxLat: b.MaxLat + padLat,
	}
}

// Activity is a parsed GPX file: a time-ordered point table plus the
// metadata the map annotations need.
type Activity struct {
	Name   string
	Date   time.Time
	Points []TrackPoint
	Bounds Bounds
}

// HasTime reports whether every point carries a timestamp; time-derived
// columns (elapsed, speed) are only meaningful when it does.
func (a *Activity) HasTime() bool {
	for _, p := range a.Points {
		if p.Time.IsZero() {
			return false
		}
	}
	return len(a.Points) > 0
}

// ReadActivity parses a GPX file into an Activity.
func ReadActivity(path string) (*Activity, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse gpx %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return newActivity(g, stem)
}

// newActivity normalizes parsed GPX data: all tracks and segments are
// flattened into one point sequence, points are ordered by time, missing
// elevations are filled from neighbors, and the bounding box is computed in
// the same pass that types the coordinates.
func newActivity(g *gpx.GPX, fallbackName string) (*Activity, error) {
	act := &Activity{
		Name:   fallbackName,
		Bounds: Bounds{MinLon: 180, MaxLon: -180, MinLat: 90, MaxLat: -90},
	}
	for _, trk := range g.Tracks {
		if trk.Name != "" && act.Name == fallbackName {
			act.Name = trk.Name
		}
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				tp := TrackPoint{Lon: p.Longitude, Lat: p.Latitude, Time: p.Timestamp}
				if p.Elevation.NotNull() {
					tp.Ele = p.Elevation.Value()
				}
				if tp.Lon < act.Bounds.MinLon {
					act.Bounds.MinLon = tp.Lon
				}
				if tp.Lon > act.Bounds.MaxLon {
					act.Bounds.MaxLon = tp.Lon
				}
				if tp.Lat < act.Bounds.MinLat {
					act.Bounds.MinLat = tp.Lat
				}
				if tp.Lat > act.Bounds.MaxLat {
					act.Bounds.MaxLat = tp.Lat
				}
				act.Points = append(act.Points, tp)
			}
		}
	}
	if len(act.Points) == 0 {
		return nil, errors.New("no track points in GPX")
	}

	sort.SliceStable(act.Points, func(i, j int) bool {
		return act.Points[i].Time.Before(act.Points[j].Time)
	})

	fillElevations(act.Points)

	if g.Time != nil {
		act.Date = *g.Time
	} else {
		act.Date = act.Points[0].Time
	}
	return act, nil
}

// fillElevations replaces zero (missing) elevations with the nearest real
// reading: backfill before the first reading, forward-fill after it.
func fillElevations(points []TrackPoint) {
	firstIdx := -1
	for i, p := range points {
		if p.Ele != 0 {
			firstIdx = i
			break
		}
	}
	if firstIdx == -1 {
		return
	}
	for i := 0; i < firstIdx; i++ {
		points[i].Ele = points[firstIdx].Ele
	}
	last := points[firstIdx].Ele
	for i := firstIdx; i < len(points); i++ {
		if points[i].Ele != 0 {
			last = points[i].Ele
		} else {
			points[i].Ele = last
		}
	}
}
