// Package gateway turns a (text, source, target) triple into a translation
// result via the remote model, using the language registry's current
// catalog and a credential from the rotation pool.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/gemini"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/storage"
)

// ErrNoCredential is returned when the credential pool is empty. This is
// a user-actionable configuration state, not a bug.
var ErrNoCredential = errors.New("no API credential configured")

// ErrUnparsableResult is returned when the model output is not valid JSON
// after fence stripping.
var ErrUnparsableResult = errors.New("unparsable model output")

// CredentialSource hands out API credentials. Implemented by
// rotation.Rotator.
type CredentialSource interface {
	Next() (cred string, ok bool, err error)
}

// Catalog exposes the merged language view. Implemented by langs.Registry.
type Catalog interface {
	All() ([]storage.Language, error)
}

// ContentGenerator is the remote model call. Implemented by gemini.Client.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, apiKey, prompt string) (string, error)
}

// StatusClassifier maps a non-success HTTP status to the short message
// shown to the user. Callers may pass DefaultStatusMessages or bring
// their own table.
type StatusClassifier func(status int) string

// Result is the parsed translation outcome. NewLanguage is non-nil only
// when the model reported a detected language outside the known catalog;
// the caller decides whether to feed it back into the registry.
type Result struct {
	DetectedSourceLanguage string            `json:"detectedSourceLanguage"`
	TranslatedText         string            `json:"translatedText"`
	NewLanguage            *storage.Language `json:"newLanguageInfo,omitempty"`
}

// RemoteError carries both the short user-facing message resolved by the
// classifier and the underlying status error for logs.
type RemoteError struct {
	Message string
	Cause   *gemini.StatusError
}

func (e *RemoteError) Error() string { return e.Message }
func (e *RemoteError) Unwrap() error { return e.Cause }

// Service is the translation gateway.
type Service struct {
	creds    CredentialSource
	catalog  Catalog
	client   ContentGenerator
	classify StatusClassifier
}

// NewService wires the gateway. classify may be nil, in which case a
// generic message is used for every remote rejection.
func NewService(creds CredentialSource, catalog Catalog, client ContentGenerator, classify StatusClassifier) *Service {
	if classify == nil {
		classify = func(int) string { return "the translation service rejected the request" }
	}
	return &Service{creds: creds, catalog: catalog, client: client, classify: classify}
}

// Translate runs the full pipeline. Every failure is terminal for this
// call: nothing is retried and no partial result is returned. The
// detailed cause is logged; the returned error carries the short message.
func (s *Service) Translate(ctx context.Context, text, source, target string) (Result, error) {
	// Whitespace-only input never reaches the network.
	if strings.TrimSpace(text) == "" {
		return Result{DetectedSourceLanguage: source}, nil
	}

	cred, ok, err := s.creds.Next()
	if err != nil {
		return Result{}, fmt.Errorf("selecting credential: %w", err)
	}
	if !ok {
		return Result{}, ErrNoCredential
	}

	catalog, err := s.catalog.All()
	if err != nil {
		return Result{}, fmt.Errorf("loading language catalog: %w", err)
	}

	prompt := buildPrompt(text, source, target, catalog)
	reqID := uuid.New().String()

	raw, err := s.client.GenerateContent(ctx, cred, prompt)
	if err != nil {
		var se *gemini.StatusError
		if errors.As(err, &se) {
			slog.Error("translation rejected by remote endpoint",
				"request_id", reqID, "status", se.Code, "detail", se.Detail)
			return Result{}, &RemoteError{Message: s.classify(se.Code), Cause: se}
		}
		slog.Error("translation request failed", "request_id", reqID, "error", err)
		return Result{}, err
	}

	result, err := parseResult(raw)
	if err != nil {
		// The raw model output goes to the log for diagnosis, never to the user.
		slog.Error("could not parse model output", "request_id", reqID, "error", err, "raw", raw)
		return Result{}, err
	}

	slog.Debug("translation completed",
		"request_id", reqID, "detected", result.DetectedSourceLanguage,
		"new_language", result.NewLanguage != nil)
	return result, nil
}

// DefaultStatusMessages is a ready-made classifier for callers that do
// not bring their own table.
func DefaultStatusMessages(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "the translation request was rejected as invalid"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "the API key was rejected; check your configured keys"
	case http.StatusNotFound:
		return "the configured model was not found"
	case http.StatusTooManyRequests:
		return "the translation service is rate limiting; try again later"
	default:
		if status >= 500 {
			return "the translation service is temporarily unavailable"
		}
		return "the translation service rejected the request"
	}
}

// buildPrompt embeds the text, the target's English name, the known-code
// enumeration, and the strict output contract. Enumerating the catalog
// lets the model tell a genuinely new language apart from a known one.
func buildPrompt(text, source, target string, catalog []storage.Language) string {
	known := make([]string, 0, len(catalog))
	targetName := target
	for _, l := range catalog {
		known = append(known, fmt.Sprintf("%s=%s", l.Code, l.EnglishName))
		if l.Code == target {
			targetName = l.EnglishName
		}
	}

	var b strings.Builder
	b.WriteString("You are a translation engine.\n")
	if source == "auto" {
		b.WriteString("Detect the source language of the text below.\n")
	} else {
		fmt.Fprintf(&b, "The source language code is %q.\n", source)
	}
	fmt.Fprintf(&b, "Translate the text into %s.\n\n", targetName)
	fmt.Fprintf(&b, "Known languages (code=English name): %s\n\n", strings.Join(known, ", "))
	b.WriteString("Respond with a single JSON object and nothing else, with keys:\n")
	b.WriteString(`  "detectedSourceLanguage": the 2-letter code of the source language` + "\n")
	b.WriteString(`  "translatedText": the translation` + "\n")
	b.WriteString("If and only if the detected language is NOT among the known languages, add:\n")
	b.WriteString(`  "newLanguageInfo": {"code": short code, "name": name in Persian, "englishName": English name, "dir": "ltr" or "rtl"}` + "\n\n")
	b.WriteString("Text:\n")
	b.WriteString(text)
	return b.String()
}

// parseResult strips an optional Markdown code fence and decodes the
// strict result object. The model output is untrusted input: both
// required keys must be present, not merely zero-valued.
func parseResult(raw string) (Result, error) {
	cleaned := stripFence(raw)

	var probe struct {
		DetectedSourceLanguage *string           `json:"detectedSourceLanguage"`
		TranslatedText         *string           `json:"translatedText"`
		NewLanguage            *storage.Language `json:"newLanguageInfo"`
	}
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnparsableResult, err)
	}

	if probe.DetectedSourceLanguage == nil || *probe.DetectedSourceLanguage == "" || probe.TranslatedText == nil {
		return Result{}, fmt.Errorf("%w: missing detectedSourceLanguage or translatedText", gemini.ErrMalformedResponse)
	}
	return Result{
		DetectedSourceLanguage: *probe.DetectedSourceLanguage,
		TranslatedText:         *probe.TranslatedText,
		NewLanguage:            probe.NewLanguage,
	}, nil
}

// stripFence removes a leading ```json (or bare ```) line and a trailing
// ``` line. Unfenced input passes through unchanged.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
