// Package rotation selects API credentials from a user-supplied pool in
// round-robin order. The pool and the last-dispatched index both live in
// the settings collection, so rotation position survives restarts.
package rotation

import (
	"errors"
	"fmt"

	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/storage"
)

// SettingsStore defines the storage operations the Rotator needs.
// Implemented by storage.Store.
type SettingsStore interface {
	PutSetting(key string, value any) error
	GetSetting(key string, out any) error
}

// Rotator hands out credentials fairly across repeated calls. Fairness is
// best-effort: two concurrent Next calls may observe the same cursor and
// return the same credential, which is acceptable.
type Rotator struct {
	store     SettingsStore
	poolKey   string
	cursorKey string
}

// New creates a Rotator reading the pool and cursor from the given
// settings keys. The keys come from configuration; the rotator treats
// them as opaque.
func New(store SettingsStore, poolKey, cursorKey string) *Rotator {
	return &Rotator{store: store, poolKey: poolKey, cursorKey: cursorKey}
}

// Next returns the next credential in round-robin order and persists the
// advanced cursor. An empty (or absent) pool returns ok=false with a nil
// error: being unconfigured is a legitimate state, not a failure.
func (r *Rotator) Next() (cred string, ok bool, err error) {
	pool, err := r.Keys()
	if err != nil {
		return "", false, err
	}
	if len(pool) == 0 {
		return "", false, nil
	}

	cursor := int64(-1)
	if err := r.store.GetSetting(r.cursorKey, &cursor); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", false, fmt.Errorf("reading rotation cursor: %w", err)
	}

	next := (cursor + 1) % int64(len(pool))
	if next < 0 {
		// Cursor persisted by an older pool state; restart at the front.
		next = 0
	}
	if err := r.store.PutSetting(r.cursorKey, next); err != nil {
		return "", false, fmt.Errorf("persisting rotation cursor: %w", err)
	}
	return pool[next], true, nil
}

// Keys returns the current credential pool. An absent pool setting reads
// as empty.
func (r *Rotator) Keys() ([]string, error) {
	var pool []string
	if err := r.store.GetSetting(r.poolKey, &pool); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("reading credential pool: %w", err)
	}
	return pool, nil
}

// Add appends a credential to the pool.
func (r *Rotator) Add(cred string) error {
	pool, err := r.Keys()
	if err != nil {
		return err
	}
	pool = append(pool, cred)
	if err := r.store.PutSetting(r.poolKey, pool); err != nil {
		return fmt.Errorf("persisting credential pool: %w", err)
	}
	return nil
}

// Remove deletes the credential at index and resets the cursor to -1 so
// the next rotation starts from the new index 0 instead of referencing a
// shifted position.
func (r *Rotator) Remove(index int) error {
	pool, err := r.Keys()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(pool) {
		return fmt.Errorf("credential index %d out of range (pool size %d)", index, len(pool))
	}

	pool = append(pool[:index], pool[index+1:]...)
	if err := r.store.PutSetting(r.poolKey, pool); err != nil {
		return fmt.Errorf("persisting credential pool: %w", err)
	}
	if err := r.store.PutSetting(r.cursorKey, int64(-1)); err != nil {
		return fmt.Errorf("resetting rotation cursor: %w", err)
	}
	return nil
}
