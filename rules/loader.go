package rules

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/securego/pysec/taint"
)

//go:embed catalogs/*.yaml
var builtinFS embed.FS

// Document is the YAML form of a catalog.
type Document struct {
	Framework  string           `yaml:"framework"`
	Version    string           `yaml:"version,omitempty"`
	Sources    []SourceEntry    `yaml:"sources"`
	Sinks      []SinkEntry      `yaml:"sinks"`
	Sanitizers []SanitizerEntry `yaml:"sanitizers"`
}

// SourceEntry is one source in a Document.
type SourceEntry struct {
	Path       string   `yaml:"path"`
	Categories []string `yaml:"categories"`
}

// SinkEntry is one sink in a Document.
type SinkEntry struct {
	Decorator     string   `yaml:"decorator"`
	Categories    []string `yaml:"categories"`
	PathArg       int      `yaml:"path_arg"`
	MethodKeyword string   `yaml:"method_keyword,omitempty"`
	DefaultMethod string   `yaml:"default_method,omitempty"`
}

// SanitizerEntry is one sanitizer in a Document.
type SanitizerEntry struct {
	Name   string   `yaml:"name"`
	Strips []string `yaml:"strips"`
}

// Load decodes a single YAML catalog document.
func Load(r io.Reader) (*Catalog, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidCatalog)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return doc.Catalog()
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(filename string) (*Catalog, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return c, nil
}

// Catalog validates the document and builds a catalog from it.
func (d Document) Catalog() (*Catalog, error) {
	if d.Framework == "" {
		return nil, fmt.Errorf("%w: framework is required", ErrInvalidCatalog)
	}
	desc := Descriptor{Framework: d.Framework, Version: d.Version}

	sources := make([]Source, 0, len(d.Sources))
	for i, e := range d.Sources {
		level, err := parseCategories(e.Categories)
		if err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		sources = append(sources, Source{Descriptor: desc, Path: e.Path, Level: level})
	}

	sinks := make([]Sink, 0, len(d.Sinks))
	for i, e := range d.Sinks {
		level, err := parseCategories(e.Categories)
		if err != nil {
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		sinks = append(sinks, Sink{
			Descriptor: desc,
			Decorator:  e.Decorator,
			SinkRule: taint.SinkRule{
				Level:         level,
				PathArg:       e.PathArg,
				MethodKeyword: e.MethodKeyword,
				DefaultMethod: e.DefaultMethod,
			},
		})
	}

	sanitizers := make([]Sanitizer, 0, len(d.Sanitizers))
	for i, e := range d.Sanitizers {
		level, err := parseCategories(e.Strips)
		if err != nil {
			return nil, fmt.Errorf("sanitizers[%d]: %w", i, err)
		}
		sanitizers = append(sanitizers, Sanitizer{Descriptor: desc, Name: e.Name, Strip: level})
	}

	return New(sources, sinks, sanitizers)
}

func parseCategories(names []string) (taint.Level, error) {
	level, err := taint.ParseLevel(names...)
	if err != nil {
		return taint.None, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return level, nil
}

// Document returns the YAML form of the catalog. Entries of several
// frameworks are written under the framework of the first entry.
func (c *Catalog) Document() Document {
	var doc Document
	for _, s := range c.sources {
		doc.describe(s.Descriptor)
		doc.Sources = append(doc.Sources, SourceEntry{Path: s.Path, Categories: lower(s.Level)})
	}
	for _, s := range c.sinks {
		doc.describe(s.Descriptor)
		doc.Sinks = append(doc.Sinks, SinkEntry{
			Decorator:     s.Decorator,
			Categories:    lower(s.Level),
			PathArg:       s.PathArg,
			MethodKeyword: s.MethodKeyword,
			DefaultMethod: s.DefaultMethod,
		})
	}
	for _, s := range c.Sanitizers() {
		doc.describe(s.Descriptor)
		doc.Sanitizers = append(doc.Sanitizers, SanitizerEntry{Name: s.Name, Strips: lower(s.Strip)})
	}
	return doc
}

func (d *Document) describe(desc Descriptor) {
	if d.Framework == "" {
		d.Framework, d.Version = desc.Framework, desc.Version
	}
}

func lower(l taint.Level) []string {
	names := l.Names()
	for i, n := range names {
		names[i] = strings.ToLower(n)
	}
	return names
}

// WriteTo encodes the catalog as YAML.
func (c *Catalog) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.Document()); err != nil {
		return 0, err
	}
	if err := enc.Close(); err != nil {
		return 0, err
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

var (
	builtinOnce  sync.Once
	builtins     map[string]*Catalog
	builtinError error
)

func loadBuiltins() {
	builtins = map[string]*Catalog{}
	entries, err := builtinFS.ReadDir("catalogs")
	if err != nil {
		builtinError = err
		return
	}
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("catalogs", e.Name()))
		if err != nil {
			builtinError = err
			return
		}
		c, err := Load(bytes.NewReader(data))
		if err != nil {
			builtinError = fmt.Errorf("builtin %s: %w", e.Name(), err)
			return
		}
		builtins[strings.TrimSuffix(e.Name(), ".yaml")] = c
	}
}

// Builtin returns the embedded catalog of a framework.
func Builtin(framework string) (*Catalog, error) {
	builtinOnce.Do(loadBuiltins)
	if builtinError != nil {
		return nil, builtinError
	}
	c, ok := builtins[strings.ToLower(framework)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFramework, framework, strings.Join(Frameworks(), ", "))
	}
	return c, nil
}

// Frameworks lists the built-in catalogs.
func Frameworks() []string {
	builtinOnce.Do(loadBuiltins)
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
