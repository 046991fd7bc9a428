// Package rules holds the catalogs of taint sources, handler sinks and
// sanitizers. Catalogs are data: the built-in ones are embedded YAML
// documents and custom ones are loaded from files.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/securego/pysec/internal/cache"
	"github.com/securego/pysec/taint"
)

var (
	// ErrInvalidCatalog wraps every validation failure of catalog data.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrUnknownFramework is returned by Builtin for unknown names.
	ErrUnknownFramework = errors.New("unknown framework")
)

// Descriptor is the metadata shared by every catalog entry.
type Descriptor struct {
	Framework string
	Version   string
	Category  string
}

const (
	CategorySource    = "source"
	CategorySink      = "sink"
	CategorySanitizer = "sanitizer"
)

// Source seeds taint on every attribute chain under Path.
type Source struct {
	Descriptor
	Path  string
	Level taint.Level
}

// Sink is a decorator registering request handlers.
type Sink struct {
	Descriptor
	Decorator string
	taint.SinkRule
}

// Sanitizer is a callable that removes categories from its argument.
type Sanitizer struct {
	Descriptor
	Name  string
	Strip taint.Level
}

type sourceMatch struct {
	level taint.Level
	ok    bool
}

const lookupCacheSize = 4096

// Catalog is an immutable set of rules. It is safe for concurrent use.
type Catalog struct {
	sources    []Source
	sinks      []Sink
	sinkIndex  map[string]int
	sanitizers map[string]Sanitizer
	sanOrder   []string

	lookups *cache.LRU[string, sourceMatch]
}

var _ taint.Catalog = (*Catalog)(nil)

// New validates the entries and builds a catalog.
func New(sources []Source, sinks []Sink, sanitizers []Sanitizer) (*Catalog, error) {
	c := &Catalog{
		sinkIndex:  map[string]int{},
		sanitizers: map[string]Sanitizer{},
		lookups:    cache.New[string, sourceMatch](lookupCacheSize),
	}
	for i, src := range sources {
		if err := c.addSource(src); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	for i, sink := range sinks {
		if err := c.addSink(sink); err != nil {
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
	}
	for i, san := range sanitizers {
		if err := c.addSanitizer(san); err != nil {
			return nil, fmt.Errorf("sanitizers[%d]: %w", i, err)
		}
	}
	return c, nil
}

// Merge combines catalogs in order. Sources keep their relative order, so
// earlier catalogs win prefix ties; a sink or sanitizer defined twice is an
// error.
func Merge(catalogs ...*Catalog) (*Catalog, error) {
	var (
		sources    []Source
		sinks      []Sink
		sanitizers []Sanitizer
	)
	for _, c := range catalogs {
		if c == nil {
			continue
		}
		sources = append(sources, c.Sources()...)
		sinks = append(sinks, c.Sinks()...)
		sanitizers = append(sanitizers, c.Sanitizers()...)
	}
	return New(sources, sinks, sanitizers)
}

func (c *Catalog) addSource(src Source) error {
	if !validPath(src.Path) {
		return fmt.Errorf("%w: source path %q", ErrInvalidCatalog, src.Path)
	}
	if src.Level.Empty() {
		return fmt.Errorf("%w: source %q has no category", ErrInvalidCatalog, src.Path)
	}
	src.Category = CategorySource
	c.sources = append(c.sources, src)
	return nil
}

func (c *Catalog) addSink(sink Sink) error {
	if !validPath(sink.Decorator) {
		return fmt.Errorf("%w: sink decorator %q", ErrInvalidCatalog, sink.Decorator)
	}
	if _, dup := c.sinkIndex[sink.Decorator]; dup {
		return fmt.Errorf("%w: duplicate sink %q", ErrInvalidCatalog, sink.Decorator)
	}
	if sink.Level.Empty() {
		return fmt.Errorf("%w: sink %q has no category", ErrInvalidCatalog, sink.Decorator)
	}
	if sink.PathArg < 0 {
		return fmt.Errorf("%w: sink %q path argument %d", ErrInvalidCatalog, sink.Decorator, sink.PathArg)
	}
	if sink.MethodKeyword == "" {
		sink.MethodKeyword = "method"
	}
	if sink.DefaultMethod == "" {
		sink.DefaultMethod = "GET"
	}
	sink.DefaultMethod = strings.ToUpper(sink.DefaultMethod)
	sink.Category = CategorySink
	c.sinkIndex[sink.Decorator] = len(c.sinks)
	c.sinks = append(c.sinks, sink)
	return nil
}

func (c *Catalog) addSanitizer(san Sanitizer) error {
	if !validPath(san.Name) {
		return fmt.Errorf("%w: sanitizer name %q", ErrInvalidCatalog, san.Name)
	}
	if _, dup := c.sanitizers[san.Name]; dup {
		return fmt.Errorf("%w: duplicate sanitizer %q", ErrInvalidCatalog, san.Name)
	}
	if san.Strip.Empty() {
		return fmt.Errorf("%w: sanitizer %q strips nothing", ErrInvalidCatalog, san.Name)
	}
	san.Category = CategorySanitizer
	c.sanitizers[san.Name] = san
	c.sanOrder = append(c.sanOrder, san.Name)
	return nil
}

// validPath accepts dotted identifiers such as "bottle.request.GET".
func validPath(p string) bool {
	if p == "" {
		return false
	}
	for _, part := range strings.Split(p, ".") {
		if part == "" || strings.ContainsAny(part, " \t()[]") {
			return false
		}
	}
	return true
}

// LookupSource returns the level of the longest source path that is path
// itself or a dotted prefix of it. Equal-length matches go to the source
// registered first.
func (c *Catalog) LookupSource(path string) (taint.Level, bool) {
	m := c.lookups.GetOrCompute(path, func() sourceMatch {
		best := -1
		for i, src := range c.sources {
			if path != src.Path && !strings.HasPrefix(path, src.Path+".") {
				continue
			}
			if best < 0 || len(src.Path) > len(c.sources[best].Path) {
				best = i
			}
		}
		if best < 0 {
			return sourceMatch{}
		}
		return sourceMatch{level: c.sources[best].Level, ok: true}
	})
	return m.level, m.ok
}

// LookupSink matches a decorator callable by its full name.
func (c *Catalog) LookupSink(decorator string) (taint.SinkRule, bool) {
	i, ok := c.sinkIndex[decorator]
	if !ok {
		return taint.SinkRule{}, false
	}
	return c.sinks[i].SinkRule, true
}

// LookupSanitizer returns the categories stripped by the named callable.
func (c *Catalog) LookupSanitizer(name string) taint.Level {
	return c.sanitizers[name].Strip
}

// Sources returns the sources in registration order.
func (c *Catalog) Sources() []Source {
	return append([]Source(nil), c.sources...)
}

// Sinks returns the sinks in registration order.
func (c *Catalog) Sinks() []Sink {
	return append([]Sink(nil), c.sinks...)
}

// Sanitizers returns the sanitizers in registration order.
func (c *Catalog) Sanitizers() []Sanitizer {
	out := make([]Sanitizer, 0, len(c.sanOrder))
	for _, name := range c.sanOrder {
		out = append(out, c.sanitizers[name])
	}
	return out
}
