// Package api is the surface the UI collaborator talks to: a bearer-authed
// HTTP API and an MCP server, both backed by the same translation core.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/gateway"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/gemini"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/langs"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/rotation"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Translator abstracts the gateway for the API layer.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (gateway.Result, error)
}

type Deps struct {
	Store      *storage.Lazy
	Registry   *langs.Registry
	Rotator    *rotation.Rotator
	Translator Translator
	Token      string
}

// NewHandler returns the HTTP handler for the local daemon. Everything
// except /health requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/translate", handleTranslate(deps))

		r.Get("/history", handleListHistory(deps))
		r.Delete("/history/{id}", handleDeleteHistory(deps))
		r.Delete("/history", handleClearHistory(deps))

		r.Get("/languages", handleListLanguages(deps))
		r.Post("/languages", handleRegisterLanguage(deps))

		r.Get("/settings/{key}", handleGetSetting(deps))
		r.Put("/settings/{key}", handlePutSetting(deps))

		r.Get("/keys", handleListKeys(deps))
		r.Post("/keys", handleAddKey(deps))
		r.Delete("/keys/{index}", handleRemoveKey(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type TranslateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type TranslateResponse struct {
	DetectedSourceLanguage string            `json:"detected_source_language"`
	TranslatedText         string            `json:"translated_text"`
	NewLanguage            *storage.Language `json:"new_language,omitempty"`
	HistoryID              int64             `json:"history_id,omitempty"`
}

func handleTranslate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req TranslateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Source == "" {
			req.Source = "auto"
		}
		if req.Target == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "target is required")
			return
		}

		result, err := deps.Translator.Translate(r.Context(), req.Text, req.Source, req.Target)
		if err != nil {
			writeTranslateError(w, err)
			return
		}

		resp := TranslateResponse{
			DetectedSourceLanguage: result.DetectedSourceLanguage,
			TranslatedText:         result.TranslatedText,
			NewLanguage:            result.NewLanguage,
		}

		// A language the model flagged as unknown flows back into the
		// registry; failing to keep the discovery must not fail the
		// translation that produced it.
		registerDiscoveredLanguage(deps, result.NewLanguage)

		// History records exist only for completed translations that
		// actually carried text.
		if result.TranslatedText != "" {
			st, err := deps.Store.Get()
			if err != nil {
				slog.Error("translation done but storage unavailable for history", "error", err)
			} else {
				rec := storage.HistoryRecord{
					ID:         st.NewHistoryID(),
					SourceLang: result.DetectedSourceLanguage,
					TargetLang: req.Target,
					SourceText: req.Text,
					TargetText: result.TranslatedText,
				}
				if err := st.AppendHistory(rec); err != nil {
					slog.Error("could not append history record", "id", rec.ID, "error", err)
				} else {
					resp.HistoryID = rec.ID
				}
			}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// registerDiscoveredLanguage persists a model-reported language only when
// its code is genuinely new. The model is told to include the descriptor
// only for unknown languages, but its output is untrusted; a known code
// must not let it overwrite a catalog entry.
func registerDiscoveredLanguage(deps Deps, lang *storage.Language) {
	if lang == nil {
		return
	}
	_, known, err := deps.Registry.Lookup(lang.Code)
	if err != nil {
		slog.Error("could not check discovered language against catalog", "code", lang.Code, "error", err)
		return
	}
	if known {
		return
	}
	if err := deps.Registry.Register(*lang); err != nil {
		slog.Error("could not register discovered language", "code", lang.Code, "error", err)
	}
}

// writeTranslateError maps gateway failure kinds onto HTTP statuses with
// a short user-facing message; detail is already in the server log.
func writeTranslateError(w http.ResponseWriter, err error) {
	var re *gateway.RemoteError
	switch {
	case errors.Is(err, gateway.ErrNoCredential):
		httpError(w, http.StatusConflict, "no_credential", "no API key configured; add one with `motargem keys add`")
	case errors.As(err, &re):
		httpError(w, http.StatusBadGateway, "remote_rejected", "%s", re.Message)
	case errors.Is(err, gemini.ErrNetwork):
		httpError(w, http.StatusBadGateway, "network_failure", "could not reach the translation service")
	case errors.Is(err, gemini.ErrMalformedResponse):
		httpError(w, http.StatusBadGateway, "malformed_response", "the translation service returned an unusable response")
	case errors.Is(err, gateway.ErrUnparsableResult):
		httpError(w, http.StatusBadGateway, "unparsable_result", "the translation service returned an unusable response")
	case errors.Is(err, storage.ErrUnavailable):
		httpError(w, http.StatusServiceUnavailable, "storage_unavailable", "local storage is unavailable")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "translation failed")
	}
}

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := requireStore(w, deps)
		if !ok {
			return
		}
		records, err := st.ListHistory()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing history: %v", err)
			return
		}
		if records == nil {
			records = []storage.HistoryRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func handleDeleteHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid history id")
			return
		}
		st, ok := requireStore(w, deps)
		if !ok {
			return
		}
		if err := st.DeleteHistory(id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "deleting history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleClearHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := requireStore(w, deps)
		if !ok {
			return
		}
		if err := st.ClearHistory(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "clearing history: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}

func handleListLanguages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := deps.Registry.All()
		if err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				httpError(w, http.StatusServiceUnavailable, "storage_unavailable", "local storage is unavailable")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "listing languages: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, all)
	}
}

func handleRegisterLanguage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var lang storage.Language
		if err := json.NewDecoder(r.Body).Decode(&lang); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if lang.Code == "" || lang.Name == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "code and name are required")
			return
		}
		if err := deps.Registry.Register(lang); err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				httpError(w, http.StatusServiceUnavailable, "storage_unavailable", "local storage is unavailable")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "registering language: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, lang)
	}
}

func handleGetSetting(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		st, ok := requireStore(w, deps)
		if !ok {
			return
		}

		var value any
		err := st.GetSetting(key, &value)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "setting %q is not set", key)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "reading setting: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": value})
	}
}

func handlePutSetting(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var body struct {
			Value any `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		st, ok := requireStore(w, deps)
		if !ok {
			return
		}
		if err := st.PutSetting(key, body.Value); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "writing setting: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"key": key, "value": body.Value})
	}
}

func handleListKeys(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := deps.Rotator.Keys()
		if err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				httpError(w, http.StatusServiceUnavailable, "storage_unavailable", "local storage is unavailable")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "listing keys: %v", err)
			return
		}

		masked := make([]string, len(keys))
		for i, k := range keys {
			masked[i] = maskCredential(k)
		}
		writeJSON(w, http.StatusOK, masked)
	}
}

func handleAddKey(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var body struct {
			Key string `json:"key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "key is required")
			return
		}
		if err := deps.Rotator.Add(body.Key); err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				httpError(w, http.StatusServiceUnavailable, "storage_unavailable", "local storage is unavailable")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "adding key: %v", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
	}
}

func handleRemoveKey(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid key index")
			return
		}
		if err := deps.Rotator.Remove(index); err != nil {
			if errors.Is(err, storage.ErrUnavailable) {
				httpError(w, http.StatusServiceUnavailable, "storage_unavailable", "local storage is unavailable")
				return
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "removing key: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

func requireStore(w http.ResponseWriter, deps Deps) (*storage.Store, bool) {
	st, err := deps.Store.Get()
	if err != nil {
		httpError(w, http.StatusServiceUnavailable, "storage_unavailable", "local storage is unavailable")
		return nil, false
	}
	return st, true
}

func maskCredential(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "..." + k[len(k)-4:]
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
