package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist. For
// settings, absence is a legitimate state and callers are expected to
// branch on it rather than treat it as a failure.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with an existing key.
var ErrDuplicate = errors.New("duplicate key")

// ErrUnavailable wraps any failure to reach or initialize the underlying
// database. It is fatal for the session: the store never retries opening.
var ErrUnavailable = errors.New("storage unavailable")

// HistoryRecord is one completed translation. Records are created exactly
// once per successful translation and are immutable except for deletion.
type HistoryRecord struct {
	ID         int64  `json:"id"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	SourceText string `json:"source_text"`
	TargetText string `json:"target_text"`
}

// Language describes one translatable language. Built-in descriptors are
// compiled into the langs package; custom descriptors live in the
// custom_languages table and are inserted when the model reports a
// language outside the known catalog.
type Language struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	EnglishName string `json:"englishName"`
	Dir         string `json:"dir"` // "ltr" or "rtl"
}
