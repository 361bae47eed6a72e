package tiles

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Style describes an XYZ tile source. URL is a template with {z}/{x}/{y}
// placeholders; ${VAR} references are expanded from the environment so API
// keys stay out of command lines.
type Style struct {
	Name        string            `yaml:"name"`
	URL         string            `yaml:"url"`
	Attribution string            `yaml:"attribution"`
	MinZoom     int               `yaml:"min_zoom"`
	MaxZoom     int               `yaml:"max_zoom"`
	Headers     map[string]string `yaml:"headers"`
	Retina      bool              `yaml:"retina"` // style serves @2x tiles
}

var builtinStyles = map[string]Style{
	"osm": {
		Name:        "osm",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MinZoom:     0, MaxZoom: 19,
	},
	"cyclosm": {
		Name:        "cyclosm",
		URL:         "https://c.tile-cyclosm.openstreetmap.fr/cyclosm/{z}/{x}/{y}.png",
		Attribution: "© CyclOSM, © OpenStreetMap contributors",
		MinZoom:     0, MaxZoom: 19,
	},
	"opentopomap": {
		Name:        "opentopomap",
		URL:         "https://tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenTopoMap (CC-BY-SA), © OpenStreetMap contributors",
		MinZoom:     0, MaxZoom: 17,
	},
	"positron": {
		Name:        "positron",
		URL:         "https://d.basemaps.cartocdn.com/light_all/{z}/{x}/{y}.png",
		Attribution: "© CARTO, © OpenStreetMap contributors",
		MinZoom:     0, MaxZoom: 20,
	},
	"esri-satellite": {
		Name:        "esri-satellite",
		URL:         "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri, Maxar, Earthstar Geographics",
		MinZoom:     0, MaxZoom: 20,
	},
	"maptiler-outdoor": {
		Name:        "maptiler-outdoor",
		URL:         "https://api.maptiler.com/maps/outdoor-v2/256/{z}/{x}/{y}.png?key=${MAPTILER_KEY}",
		Attribution: "© MapTiler, © OpenStreetMap contributors",
		MinZoom:     0, MaxZoom: 20,
	},
}

// LookupStyle resolves a style by name against the built-ins plus any styles
// loaded from a user file (user entries shadow built-ins).
func LookupStyle(name, stylesFile string) (Style, error) {
	styles := make(map[string]Style, len(builtinStyles))
	for k, v := range builtinStyles {
		styles[k] = v
	}
	if stylesFile != "" {
		extra, err := LoadStyles(stylesFile)
		if err != nil {
			return Style{}, err
		}
		for k, v := range extra {
			styles[k] = v
		}
	}
	s, ok := styles[name]
	if !ok {
		return Style{}, fmt.Errorf("unknown tile style %q", name)
	}
	return s, nil
}

// LoadStyles reads extra tile styles from a YAML file keyed by style name.
func LoadStyles(path string) (map[string]Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read styles file: %w", err)
	}
	var styles map[string]Style
	if err := yaml.Unmarshal(data, &styles); err != nil {
		return nil, fmt.Errorf("parse styles file %s: %w", path, err)
	}
	for name, s := range styles {
		if s.URL == "" {
			return nil, fmt.Errorf("style %q: url is required", name)
		}
		if s.Name == "" {
			s.Name = name
		}
		if s.MaxZoom == 0 {
			s.MaxZoom = 19
		}
		styles[name] = s
	}
	return styles, nil
}

// StyleNames lists the built-in style names for help text.
func StyleNames() []string {
	names := make([]string, 0, len(builtinStyles))
	for k := range builtinStyles {
		names = append(names, k)
	}
	return names
}

// FillURL expands the template for one tile, including environment keys.
func (s Style) FillURL(z, x, y int) (string, error) {
	u := strings.ReplaceAll(s.URL, "{z}", fmt.Sprintf("%d", z))
	u = strings.ReplaceAll(u, "{x}", fmt.Sprintf("%d", x))
	u = strings.ReplaceAll(u, "{y}", fmt.Sprintf("%d", y))
	u = os.ExpandEnv(u)
	if _, err := url.Parse(u); err != nil {
		return "", fmt.Errorf("style %s: bad tile URL: %w", s.Name, err)
	}
	return u, nil
}

// TilePixels is the edge length of one tile image for this style.
func (s Style) TilePixels() int {
	if s.Retina {
		return 2 * TileSize
	}
	return TileSize
}

// ClampZoom keeps z inside the style's supported range.
func (s Style) ClampZoom(z int) int {
	if z < s.MinZoom {
		return s.MinZoom
	}
	if z > s.MaxZoom {
		return s.MaxZoom
	}
	return z
}
