package storage

import "sync"

// Lazy defers opening the database until first use and shares the single
// connection across all callers. The first caller performs the open;
// concurrent callers block until it completes and then observe the same
// *Store or the same open error. An open failure is sticky: the session
// is considered unusable and no retry is attempted.
type Lazy struct {
	dataDir string

	once  sync.Once
	store *Store
	err   error
}

// NewLazy returns a Lazy store rooted at dataDir. Nothing is opened yet.
func NewLazy(dataDir string) *Lazy {
	return &Lazy{dataDir: dataDir}
}

// Get returns the shared store, opening it on first call. The returned
// error, when non-nil, wraps ErrUnavailable.
func (l *Lazy) Get() (*Store, error) {
	l.once.Do(func() {
		l.store, l.err = Open(l.dataDir)
	})
	return l.store, l.err
}

// Close closes the store if it was ever opened.
func (l *Lazy) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// The delegating methods below let collaborators that only need one
// collection (the rotator's settings, the registry's languages) hold the
// Lazy directly, so the connection is not established until one of them
// actually touches storage.

func (l *Lazy) PutSetting(key string, value any) error {
	s, err := l.Get()
	if err != nil {
		return err
	}
	return s.PutSetting(key, value)
}

func (l *Lazy) GetSetting(key string, out any) error {
	s, err := l.Get()
	if err != nil {
		return err
	}
	return s.GetSetting(key, out)
}

func (l *Lazy) PutLanguage(lang Language) error {
	s, err := l.Get()
	if err != nil {
		return err
	}
	return s.PutLanguage(lang)
}

func (l *Lazy) ListCustomLanguages() ([]Language, error) {
	s, err := l.Get()
	if err != nil {
		return nil, err
	}
	return s.ListCustomLanguages()
}
