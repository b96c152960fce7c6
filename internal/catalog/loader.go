package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"academic_advisor/internal/models"
)

//go:embed programs/*.yaml
var builtinFS embed.FS

// Format is the encoding of a catalog document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported catalog file %s: want .yaml, .yml or .json", path)
	}
}

// Decode reads, normalizes and validates a catalog.
func Decode(r io.Reader, format Format) (*Catalog, []models.Diagnostic, error) {
	var c Catalog
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, nil, fmt.Errorf("decode json catalog: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	c.Normalize()
	diags, err := c.Validate()
	if err != nil {
		return nil, nil, err
	}
	return &c, diags, nil
}

// LoadFile reads one catalog file.
func LoadFile(path string) (*Catalog, []models.Diagnostic, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, diags, err := Decode(f, format)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, diags, nil
}

// Builtin returns the catalogs shipped with the binary.
func Builtin() ([]*Catalog, error) {
	entries, err := builtinFS.ReadDir("programs")
	if err != nil {
		return nil, err
	}
	var out []*Catalog
	for _, entry := range entries {
		f, err := builtinFS.Open("programs/" + entry.Name())
		if err != nil {
			return nil, err
		}
		c, _, err := Decode(f, FormatYAML)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("builtin catalog %s: %w", entry.Name(), err)
		}
		out = append(out, c)
	}
	return out, nil
}

// Registry holds loaded catalogs keyed by program code. Catalogs loaded from
// a directory are tracked per directory so a reload also drops the ones whose
// files are gone.
type Registry struct {
	mu       sync.RWMutex
	catalogs map[string]*Catalog
	static   map[string]*Catalog
	dirs     map[string]map[string]*Catalog
}

// NewRegistry creates a registry seeded with the given catalogs.
func NewRegistry(catalogs ...*Catalog) *Registry {
	r := &Registry{
		catalogs: make(map[string]*Catalog),
		static:   make(map[string]*Catalog),
		dirs:     make(map[string]map[string]*Catalog),
	}
	for _, c := range catalogs {
		r.Add(c)
	}
	return r
}

// Add registers c, replacing any catalog with the same program code.
func (r *Registry) Add(c *Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.static[c.ProgramCode] = c
	for _, loaded := range r.dirs {
		delete(loaded, c.ProgramCode)
	}
	r.rebuild()
}

// rebuild recomputes the effective set: added catalogs overlaid by directory
// catalogs. Callers hold mu.
func (r *Registry) rebuild() {
	catalogs := make(map[string]*Catalog, len(r.static))
	for code, c := range r.static {
		catalogs[code] = c
	}
	dirs := make([]string, 0, len(r.dirs))
	for dir := range r.dirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		for code, c := range r.dirs[dir] {
			catalogs[code] = c
		}
	}
	r.catalogs = catalogs
}

// Get returns the catalog for a program code.
func (r *Registry) Get(code string) (*Catalog, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.catalogs[code]
	return c, ok
}

// Codes returns the registered program codes, sorted.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.catalogs))
	for code := range r.catalogs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// LoadDir registers every catalog file found in dir, replacing whatever an
// earlier LoadDir of the same dir registered. A missing directory is not an
// error and unregisters that directory's catalogs. Per-catalog warnings are
// returned keyed by program code. On error the registry is left unchanged.
func (r *Registry) LoadDir(dir string) (map[string][]models.Diagnostic, error) {
	key := filepath.Clean(dir)
	loaded := make(map[string]*Catalog)
	warnings := make(map[string][]models.Diagnostic)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if _, err := FormatFromPath(path); err != nil {
			continue
		}
		c, diags, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		loaded[c.ProgramCode] = c
		if len(diags) > 0 {
			warnings[c.ProgramCode] = diags
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs[key] = loaded
	r.rebuild()
	return warnings, nil
}
