package connector

import (
	"fmt"
	"sort"
	"strings"
)

var registry = map[string]Constructor{}

// Register adds a connector constructor under the given source name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the connector constructor for the given source name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown connector source: %s (registered: %s)", name, strings.Join(Sources(), ", "))
	}
	return ctor, nil
}

// Sources returns the names of all registered sources, sorted.
func Sources() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
