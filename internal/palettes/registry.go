package palettes

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/rmitchellscott/ditherbox/internal/dither"
	"github.com/rmitchellscott/ditherbox/internal/logging"
)

//go:embed palettes.yml
var builtinPalettes []byte

// DefaultName is the preset used when a request names no palette
const DefaultName = "default"

type paletteFile struct {
	Palettes map[string][]string `yaml:"palettes"`
}

// Registry holds named palettes loaded from the embedded presets and an
// optional user file
type Registry struct {
	palettes map[string]dither.Palette
	mutex    sync.RWMutex
}

// NewRegistry creates a registry with the built-in presets
func NewRegistry() (*Registry, error) {
	r := &Registry{
		palettes: make(map[string]dither.Palette),
	}
	if err := r.load(builtinPalettes, "builtin"); err != nil {
		return nil, fmt.Errorf("failed to load builtin palettes: %w", err)
	}
	return r, nil
}

// LoadFile merges the presets defined in a YAML file. Entries override
// built-in presets with the same name.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read palette file %s: %w", path, err)
	}
	if err := r.load(data, path); err != nil {
		return err
	}
	logging.InfoWithComponent(logging.ComponentConfig, "Loaded palette presets", "path", path)
	return nil
}

func (r *Registry) load(data []byte, source string) error {
	var file paletteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse palettes in %s: %w", source, err)
	}

	parsed := make(map[string]dither.Palette, len(file.Palettes))
	for name, colors := range file.Palettes {
		p, err := dither.ParseHexPalette(colors)
		if err != nil {
			return fmt.Errorf("palette %q in %s: %w", name, source, err)
		}
		parsed[strings.ToLower(name)] = p
	}

	r.mutex.Lock()
	for name, p := range parsed {
		r.palettes[name] = p
	}
	r.mutex.Unlock()
	return nil
}

// Get returns a copy of the named palette. Names are case-insensitive.
func (r *Registry) Get(name string) (dither.Palette, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, ok := r.palettes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, false
	}
	return append(dither.Palette(nil), p...), true
}

// Names returns the preset names in sorted order
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.palettes))
	for name := range r.palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every preset formatted as hex strings
func (r *Registry) All() map[string][]string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make(map[string][]string, len(r.palettes))
	for name, p := range r.palettes {
		out[name] = p.HexStrings()
	}
	return out
}

// Resolve turns a request value into a palette. An empty value selects the
// default preset, a known name selects that preset, and anything else is
// parsed as a comma-separated list of hex colors.
func (r *Registry) Resolve(value string) (dither.Palette, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = DefaultName
	}
	if p, ok := r.Get(value); ok {
		return p, nil
	}
	return dither.ParsePalette(value)
}
