package taint

import (
	"fmt"
	"strings"
)

// Level is a bitmask of vulnerability categories carried by a value.
// Bits only mean membership; the zero Level is "untainted".
type Level uint8

const (
	// XSS marks markup injection.
	XSS Level = 1 << iota
	// SQLI marks query injection.
	SQLI
	// DB marks generic untrusted data reaching storage.
	DB
)

const (
	// None is the empty level.
	None Level = 0
	// Generic is untrusted data that is not known to be markup.
	Generic = SQLI | DB
	// All holds every category.
	All = XSS | SQLI | DB
)

var categories = []struct {
	level Level
	name  string
}{
	{XSS, "XSS"},
	{SQLI, "SQLI"},
	{DB, "DB"},
}

var levelAliases = map[string]Level{
	"xss":               XSS,
	"markup-injection":  XSS,
	"sqli":              SQLI,
	"query-injection":   SQLI,
	"db":                DB,
	"generic-untrusted": DB,
	"generic":           Generic,
	"all":               All,
	"none":              None,
}

// Combine returns the union of a and b.
func Combine(a, b Level) Level {
	return a | b
}

// Strip removes the categories in mask from a.
func Strip(a, mask Level) Level {
	return a &^ mask
}

// Has reports whether l shares at least one category with x.
func (l Level) Has(x Level) bool {
	return l&x != 0
}

// Empty reports whether l carries no category.
func (l Level) Empty() bool {
	return l == None
}

// Names returns the category names of l in bit order.
func (l Level) Names() []string {
	var names []string
	for _, c := range categories {
		if l.Has(c.level) {
			names = append(names, c.name)
		}
	}
	return names
}

func (l Level) String() string {
	if l.Empty() {
		return "none"
	}
	return strings.Join(l.Names(), "|")
}

// MarshalText encodes the level as its category names joined by "|".
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText accepts the output of MarshalText.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(strings.Split(string(text), "|")...)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel combines the named categories. Names are case-insensitive and
// may be aliases such as "markup-injection" or "generic".
func ParseLevel(names ...string) (Level, error) {
	var l Level
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		c, ok := levelAliases[key]
		if !ok {
			return None, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
		}
		l |= c
	}
	return l, nil
}
