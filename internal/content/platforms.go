package content

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlatformTable lists the content types each platform accepts. It is consulted when
// creating or editing schedule entries, never by filtering or timeline placement.
type PlatformTable map[Platform][]ContentType

// DefaultPlatformTable returns the built-in platform catalogue.
func DefaultPlatformTable() PlatformTable {
	return PlatformTable{
		PlatformInstagram: {"post", "reel", "story", "carousel"},
		PlatformTikTok:    {"video", "live"},
		PlatformYouTube:   {"video", "short", "live"},
		PlatformFacebook:  {"post", "reel", "story", "video"},
		PlatformTwitter:   {"tweet", "thread"},
		PlatformTwitch:    {"stream"},
	}
}

type platformFile struct {
	Platforms map[string][]string `yaml:"platforms"`
}

// LoadPlatformTable reads a YAML override of the form
//
//	platforms:
//	  instagram: [post, reel]
//
// Platforms listed in the file replace the defaults; the rest are kept.
func LoadPlatformTable(path string) (PlatformTable, error) {
	table := DefaultPlatformTable()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform table: %w", err)
	}
	var file platformFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse platform table: %w", err)
	}
	for name, types := range file.Platforms {
		p := Platform(strings.ToLower(strings.TrimSpace(name)))
		if p == "" {
			continue
		}
		normalized := make([]ContentType, 0, len(types))
		for _, t := range types {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				normalized = append(normalized, ContentType(t))
			}
		}
		table[p] = normalized
	}
	return table, nil
}

// Types returns the content types allowed on a platform.
func (t PlatformTable) Types(p Platform) []ContentType {
	return t[Platform(strings.ToLower(string(p)))]
}

// Allows reports whether a platform accepts the content type, case-insensitively.
func (t PlatformTable) Allows(p Platform, ct ContentType) bool {
	return slices.Contains(t.Types(p), ContentType(strings.ToLower(string(ct))))
}

// Platforms returns the known platforms in sorted order.
func (t PlatformTable) Platforms() []Platform {
	out := make([]Platform, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
