package media

import (
	_ "embed"
	"fmt"
	"net/url"
	"path"
	"runtime"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed kinds.toml
var kindsTOML []byte

// Kind is what a link points at.
type Kind int

const (
	KindPage Kind = iota
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	default:
		return "page"
	}
}

type KindConfig struct {
	Extensions  []string `toml:"extensions"`
	URLPatterns []string `toml:"url_patterns"`
}

type KindsConfig struct {
	Image     KindConfig                `toml:"image"`
	Page      KindConfig                `toml:"page"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type PlatformConfig struct {
	DefaultOpener string `toml:"default_opener"`
}

type KindDetector struct {
	config *KindsConfig
}

func NewKindDetector() (*KindDetector, error) {
	var cfg KindsConfig
	if err := toml.Unmarshal(kindsTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing kinds.toml: %w", err)
	}
	return &KindDetector{config: &cfg}, nil
}

// Detect classifies link by its path extension, then by known image host
// patterns. Anything unrecognised is a page.
func (d *KindDetector) Detect(link string) Kind {
	lower := strings.ToLower(link)

	p := lower
	if u, err := url.Parse(lower); err == nil {
		p = u.Path
	}
	if ext := strings.TrimPrefix(path.Ext(p), "."); ext != "" {
		if slices.Contains(d.config.Image.Extensions, ext) {
			return KindImage
		}
		if slices.Contains(d.config.Page.Extensions, ext) {
			return KindPage
		}
	}

	for _, pattern := range d.config.Image.URLPatterns {
		if strings.Contains(lower, pattern) {
			return KindImage
		}
	}
	return KindPage
}

// DefaultOpener returns the platform's generic opener.
func (d *KindDetector) DefaultOpener() string {
	if pc, ok := d.config.Platforms[runtime.GOOS]; ok {
		return pc.DefaultOpener
	}
	if pc, ok := d.config.Platforms["fallback"]; ok {
		return pc.DefaultOpener
	}
	return "open"
}
