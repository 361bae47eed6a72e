package main

import (
	"errors"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// ParseHexColor parses #RRGGBB or #RRGGBBAA.
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return nil, errors.New("hex color must start with #")
	}
	h := strings.TrimPrefix(s, "#")
	switch len(h) {
	case 6, 8:
	default:
		return nil, errors.New("hex color format: #RRGGBB or #RRGGBBAA")
	}
	var parts [4]uint8
	parts[3] = 0xFF
	for i := 0; i*2 < len(h); i++ {
		v, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, errors.New("hex color format: #RRGGBB or #RRGGBBAA")
		}
		parts[i] = uint8(v)
	}
	return color.RGBA{parts[0], parts[1], parts[2], parts[3]}, nil
}

// viridisAnchors samples the viridis color scale at nine evenly spaced
// positions; intermediate values are linearly interpolated.
var viridisAnchors = [][3]uint8{
	{68, 1, 84},
	{70, 50, 126},
	{54, 92, 141},
	{39, 127, 142},
	{33, 145, 140},
	{46, 178, 125},
	{94, 201, 98},
	{160, 218, 57},
	{253, 231, 37},
}

// Viridis maps t in [0..1] (clamped) onto the viridis scale.
func Viridis(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Min(1, math.Max(0, t))
	pos := t * float64(len(viridisAnchors)-1)
	i := int(pos)
	if i >= len(viridisAnchors)-1 {
		a := viridisAnchors[len(viridisAnchors)-1]
		return color.RGBA{a[0], a[1], a[2], 0xFF}
	}
	frac := pos - float64(i)
	lo, hi := viridisAnchors[i], viridisAnchors[i+1]
	lerp := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a) + frac*(float64(b)-float64(a))))
	}
	return color.RGBA{lerp(lo[0], hi[0]), lerp(lo[1], hi[1]), lerp(lo[2], hi[2]), 0xFF}
}

// SpeedColor maps a speed onto the scale given the clamp bounds.
func SpeedColor(v, lo, hi float64) color.RGBA {
	if hi <= lo {
		return Viridis(0)
	}
	return Viridis((v - lo) / (hi - lo))
}
