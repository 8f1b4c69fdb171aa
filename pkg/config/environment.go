package config

import (
	"fmt"
	"sort"
)

// Environment is the read-only key-value view of one environment section of
// a configuration file. It is never mutated after [Loader.Environment]
// returns it.
type Environment struct {
	name   string
	values map[string]any
}

func newEnvironment(name string, values map[string]any) *Environment {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Environment{name: name, values: copied}
}

// Name returns the environment key the section was loaded from.
func (e *Environment) Name() string {
	return e.name
}

// Get returns the raw value stored under key, or def when the key is
// absent.
func (e *Environment) Get(key string, def any) any {
	if v, ok := e.values[key]; ok {
		return v
	}
	return def
}

// GetString returns the value stored under key rendered as a string, or def
// when the key is absent or null.
func (e *Environment) GetString(key, def string) string {
	v, ok := e.values[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	if s, err := scalarString(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// Keys returns the setting names in sorted order.
func (e *Environment) Keys() []string {
	keys := make([]string, 0, len(e.values))
	for k := range e.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
