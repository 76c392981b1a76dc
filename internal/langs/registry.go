// Package langs maintains the merged view of known languages: the fixed
// built-in catalog plus user-discovered custom descriptors from the
// persistent store.
package langs

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/storage"
)

// LanguageStore defines the storage operations the Registry needs.
// Implemented by storage.Store.
type LanguageStore interface {
	PutLanguage(l storage.Language) error
	ListCustomLanguages() ([]storage.Language, error)
}

// Registry presents one coherent, cached language catalog. The cache has
// two states: empty (nothing built) and loaded. Reads rebuild lazily when
// empty; every successful Register drops the cache so the next read
// reflects the newly persisted descriptor.
type Registry struct {
	store LanguageStore

	mu     sync.RWMutex
	all    []storage.Language // nil = empty state
	names  map[string]string
	gen    uint64 // bumped by Invalidate; guards stale rebuild installs
	single singleflight.Group
}

// NewRegistry creates a Registry over the given store. No catalog is
// built until the first read.
func NewRegistry(store LanguageStore) *Registry {
	return &Registry{store: store}
}

// All returns the merged catalog: built-ins in their fixed order, with a
// custom entry of the same code replacing the built-in in place, and
// novel custom codes appended in insertion order. The slice is rebuilt at
// most once per invalidation; concurrent first readers share one rebuild.
// A rebuild that raced an invalidation is discarded and restarted, so an
// invalidation is never lost to a stale install.
func (r *Registry) All() ([]storage.Language, error) {
	for {
		r.mu.RLock()
		if r.all != nil {
			cached := r.all
			r.mu.RUnlock()
			return cached, nil
		}
		r.mu.RUnlock()

		v, err, _ := r.single.Do("rebuild", func() (any, error) {
			return r.rebuild()
		})
		if err != nil {
			return nil, err
		}
		if merged := v.([]storage.Language); merged != nil {
			return merged, nil
		}
		// The rebuild was discarded because Invalidate landed mid-read.
	}
}

// Names returns the code→display-name map for the merged catalog, built
// under the same caching contract as All.
func (r *Registry) Names() (map[string]string, error) {
	for {
		r.mu.RLock()
		if r.names != nil {
			names := r.names
			r.mu.RUnlock()
			return names, nil
		}
		r.mu.RUnlock()

		if _, err := r.All(); err != nil {
			return nil, err
		}
	}
}

// Lookup returns the descriptor for code from the merged catalog.
func (r *Registry) Lookup(code string) (storage.Language, bool, error) {
	all, err := r.All()
	if err != nil {
		return storage.Language{}, false, err
	}
	for _, l := range all {
		if l.Code == code {
			return l, true, nil
		}
	}
	return storage.Language{}, false, nil
}

// Register validates and persists a custom descriptor, then invalidates
// the cache. Descriptors typically come from an untrusted model response,
// so a missing code or name is logged and dropped rather than failed:
// losing one discovery must not break the translation that produced it.
func (r *Registry) Register(l storage.Language) error {
	if l.Code == "" || l.Name == "" {
		slog.Warn("dropping invalid language descriptor", "code", l.Code, "name", l.Name, "english_name", l.EnglishName)
		return nil
	}
	if l.Dir != "rtl" {
		l.Dir = "ltr"
	}

	if err := r.store.PutLanguage(l); err != nil {
		return fmt.Errorf("persisting language %q: %w", l.Code, err)
	}

	r.Invalidate()
	slog.Info("registered language", "code", l.Code, "english_name", l.EnglishName)
	return nil
}

// Invalidate drops the cached catalog; the next read rebuilds it.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	r.gen++
	r.all = nil
	r.names = nil
	r.mu.Unlock()
}

// rebuild reads the store outside the lock, then installs the merge only
// if no Invalidate happened since the read began. A nil, nil return means
// the result was stale and the caller must rebuild again.
func (r *Registry) rebuild() ([]storage.Language, error) {
	r.mu.RLock()
	gen := r.gen
	r.mu.RUnlock()

	custom, err := r.store.ListCustomLanguages()
	if err != nil {
		return nil, fmt.Errorf("loading custom languages: %w", err)
	}

	merged := Builtin()
	index := make(map[string]int, len(merged))
	for i, l := range merged {
		index[l.Code] = i
	}
	for _, l := range custom {
		if i, ok := index[l.Code]; ok {
			// Custom entry shadows the built-in with the same code.
			merged[i] = l
			continue
		}
		index[l.Code] = len(merged)
		merged = append(merged, l)
	}

	names := make(map[string]string, len(merged))
	for _, l := range merged {
		names[l.Code] = l.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen != gen {
		return nil, nil
	}
	r.all = merged
	r.names = names
	return merged, nil
}
