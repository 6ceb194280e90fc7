// SPDX-License-Identifier: MIT
package effect

import (
	"sort"
	"sync"
	"sync/atomic"
)

// PropertySet is a string-keyed configuration map shared between a control
// actor (UI, network) and the real-time path. Readers do one atomic load and
// a map lookup; writers copy the map and publish the copy.
type PropertySet struct {
	mu     sync.Mutex // serializes writers
	values atomic.Pointer[map[string]any]
}

// NewPropertySet returns an empty set.
func NewPropertySet() *PropertySet {
	p := &PropertySet{}
	empty := make(map[string]any)
	p.values.Store(&empty)
	return p
}

// Set stores v under key.
func (p *PropertySet) Set(key string, v any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := *p.values.Load()
	next := make(map[string]any, len(current)+1)
	for k, val := range current {
		next[k] = val
	}
	next[key] = v
	p.values.Store(&next)
}

// Delete removes key.
func (p *PropertySet) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := *p.values.Load()
	if _, ok := current[key]; !ok {
		return
	}
	next := make(map[string]any, len(current))
	for k, val := range current {
		if k != key {
			next[k] = val
		}
	}
	p.values.Store(&next)
}

// Get returns the value stored under key.
func (p *PropertySet) Get(key string) (any, bool) {
	v, ok := (*p.values.Load())[key]
	return v, ok
}

// Float returns key as a float32, or def when the key is absent or does not
// hold a float.
func (p *PropertySet) Float(key string, def float32) float32 {
	if p == nil {
		return def
	}
	switch v := (*p.values.Load())[key].(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	default:
		return def
	}
}

// Keys returns the stored keys in sorted order.
func (p *PropertySet) Keys() []string {
	current := *p.values.Load()
	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
