package match

import (
	"sort"
	"sync"

	"github.com/wfunc/rpsserver/rules"
)

// Registry holds every match by name.
type Registry struct {
	matches map[string]*Match
	mutex   sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		matches: make(map[string]*Match),
	}
}

// CreateIfAbsent returns the match called name, creating it with rs when it
// does not exist. created reports whether this call created it.
func (r *Registry) CreateIfAbsent(name string, rs *rules.RuleSet) (m *Match, created bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, ok := r.matches[name]; ok {
		return existing, false
	}
	m = New(name, rs)
	r.matches[name] = m
	return m, true
}

func (r *Registry) Get(name string) (*Match, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	m, ok := r.matches[name]
	return m, ok
}

// Names returns the sorted match names.
func (r *Registry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.matches))
	for name := range r.matches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the matches sorted by name.
func (r *Registry) All() []*Match {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make([]*Match, 0, len(r.matches))
	for _, m := range r.matches {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.matches)
}

// Remove closes and forgets the match.
func (r *Registry) Remove(name string) {
	r.mutex.Lock()
	m, ok := r.matches[name]
	delete(r.matches, name)
	r.mutex.Unlock()

	if ok {
		m.Close()
	}
}

// CloseAll closes every match, keeping them registered.
func (r *Registry) CloseAll() {
	for _, m := range r.All() {
		m.Close()
	}
}
