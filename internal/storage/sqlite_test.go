package storage

import (
	"errors"
	"sync"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestOpenBadDirReportsUnavailable(t *testing.T) {
	_, err := Open("/dev/null/nope")
	if err == nil {
		t.Fatal("expected error opening storage under /dev/null")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error does not wrap ErrUnavailable: %v", err)
	}
}

func TestPutGetSetting(t *testing.T) {
	s := openTestStore(t)

	if err := s.PutSetting("theme", "dark"); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}

	var got string
	if err := s.GetSetting("theme", &got); err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got != "dark" {
		t.Errorf("got %q, want %q", got, "dark")
	}
}

func TestPutSettingLastWriteWins(t *testing.T) {
	s := openTestStore(t)

	if err := s.PutSetting("api_keys", []string{"a"}); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	if err := s.PutSetting("api_keys", []string{"b", "c"}); err != nil {
		t.Fatalf("PutSetting (overwrite): %v", err)
	}

	var got []string
	if err := s.GetSetting("api_keys", &got); err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("got %v, want [b c]", got)
	}

	// At most one row per key.
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM settings WHERE key = 'api_keys'").Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d rows for key, want 1", count)
	}
}

func TestGetSettingAbsent(t *testing.T) {
	s := openTestStore(t)

	var out string
	err := s.GetSetting("missing", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestHistoryOrderedNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []int64{100, 300, 200} {
		rec := HistoryRecord{ID: id, SourceLang: "en", TargetLang: "fa", SourceText: "hi", TargetText: "سلام"}
		if err := s.AppendHistory(rec); err != nil {
			t.Fatalf("AppendHistory(%d): %v", id, err)
		}
	}

	records, err := s.ListHistory()
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}

	want := []int64{300, 200, 100}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, rec := range records {
		if rec.ID != want[i] {
			t.Errorf("records[%d].ID = %d, want %d", i, rec.ID, want[i])
		}
	}
}

func TestAppendHistoryDuplicateID(t *testing.T) {
	s := openTestStore(t)

	rec := HistoryRecord{ID: 42, SourceLang: "en", TargetLang: "de", SourceText: "x", TargetText: "y"}
	if err := s.AppendHistory(rec); err != nil {
		t.Fatalf("first AppendHistory: %v", err)
	}

	err := s.AppendHistory(rec)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("got %v, want ErrDuplicate", err)
	}
}

func TestDeleteHistoryIdempotent(t *testing.T) {
	s := openTestStore(t)

	rec := HistoryRecord{ID: 7, SourceLang: "en", TargetLang: "fr", SourceText: "a", TargetText: "b"}
	if err := s.AppendHistory(rec); err != nil {
		t.Fatalf("AppendHistory: %v", err)
	}

	if err := s.DeleteHistory(7); err != nil {
		t.Fatalf("DeleteHistory: %v", err)
	}
	// Second delete of the same id must not error.
	if err := s.DeleteHistory(7); err != nil {
		t.Errorf("repeated DeleteHistory: %v", err)
	}

	records, err := s.ListHistory()
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records after delete, want 0", len(records))
	}
}

func TestClearHistory(t *testing.T) {
	s := openTestStore(t)

	for id := int64(1); id <= 3; id++ {
		if err := s.AppendHistory(HistoryRecord{ID: id, SourceLang: "en", TargetLang: "es", SourceText: "a", TargetText: "b"}); err != nil {
			t.Fatalf("AppendHistory(%d): %v", id, err)
		}
	}

	if err := s.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if err := s.ClearHistory(); err != nil {
		t.Errorf("repeated ClearHistory: %v", err)
	}

	records, err := s.ListHistory()
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records after clear, want 0", len(records))
	}
}

func TestNewHistoryIDMonotonic(t *testing.T) {
	s := openTestStore(t)

	var prev int64
	for i := 0; i < 1000; i++ {
		id := s.NewHistoryID()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestPutLanguageUpsert(t *testing.T) {
	s := openTestStore(t)

	if err := s.PutLanguage(Language{Code: "tlh", Name: "tlhIngan Hol", EnglishName: "Klingon", Dir: "ltr"}); err != nil {
		t.Fatalf("PutLanguage: %v", err)
	}
	if err := s.PutLanguage(Language{Code: "tlh", Name: "tlhIngan", EnglishName: "Klingon", Dir: "ltr"}); err != nil {
		t.Fatalf("PutLanguage (overwrite): %v", err)
	}

	langs, err := s.ListCustomLanguages()
	if err != nil {
		t.Fatalf("ListCustomLanguages: %v", err)
	}
	if len(langs) != 1 {
		t.Fatalf("got %d languages, want 1", len(langs))
	}
	if langs[0].Name != "tlhIngan" {
		t.Errorf("got name %q, want %q", langs[0].Name, "tlhIngan")
	}
}

func TestListCustomLanguagesInsertionOrder(t *testing.T) {
	s := openTestStore(t)

	for _, l := range []Language{
		{Code: "zz", Name: "Zz", EnglishName: "Zeta", Dir: "ltr"},
		{Code: "aa", Name: "Aa", EnglishName: "Alpha", Dir: "rtl"},
	} {
		if err := s.PutLanguage(l); err != nil {
			t.Fatalf("PutLanguage(%s): %v", l.Code, err)
		}
	}

	langs, err := s.ListCustomLanguages()
	if err != nil {
		t.Fatalf("ListCustomLanguages: %v", err)
	}
	if len(langs) != 2 || langs[0].Code != "zz" || langs[1].Code != "aa" {
		t.Errorf("got order %v, want [zz aa]", langs)
	}
}

func TestLazySharesSingleStore(t *testing.T) {
	lazy := NewLazy(t.TempDir())
	t.Cleanup(func() { lazy.Close() })

	const callers = 8
	stores := make([]*Store, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := lazy.Get()
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if stores[i] != stores[0] {
			t.Fatalf("caller %d observed a different store instance", i)
		}
	}
}

func TestLazyOpenErrorIsSticky(t *testing.T) {
	lazy := NewLazy("/dev/null/nope")

	_, err1 := lazy.Get()
	if !errors.Is(err1, ErrUnavailable) {
		t.Fatalf("first Get: got %v, want ErrUnavailable", err1)
	}

	_, err2 := lazy.Get()
	if !errors.Is(err2, ErrUnavailable) {
		t.Fatalf("second Get: got %v, want ErrUnavailable", err2)
	}
}
