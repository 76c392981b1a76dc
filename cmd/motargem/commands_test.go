package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestTranslateRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /translate": `{"detected_source_language":"en","translated_text":"سلام","history_id":42}`,
	})

	client := ts.client()
	req := map[string]string{"text": "hello", "source": "auto", "target": "fa"}

	resp, err := client.post(ctx, "/translate", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		TranslatedText         string `json:"translated_text"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if result.TranslatedText != "سلام" {
		t.Errorf("translated = %q, want %q", result.TranslatedText, "سلام")
	}
	if result.DetectedSourceLanguage != "en" {
		t.Errorf("detected = %q, want en", result.DetectedSourceLanguage)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["target"] != "fa" {
		t.Errorf("body.target = %q, want fa", body["target"])
	}
}

func TestTranslateCommand_MissingTarget(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"translate", "hello"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing --to")
	}
	if !strings.Contains(err.Error(), "--to") {
		t.Errorf("error = %q, want it to mention --to", err.Error())
	}
}

func TestHistoryDeleteRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /history/42": `{"status":"deleted"}`,
	})

	client := ts.client()
	resp, err := client.delete(ctx, "/history/42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["status"] != "deleted" {
		t.Errorf("status = %q, want deleted", result["status"])
	}
	if ts.requests[0].Method != "DELETE" {
		t.Errorf("method = %q, want DELETE", ts.requests[0].Method)
	}
}

func TestKeysRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /keys": `["AIza...wxyz"]`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/keys")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var keys []string
	if err := decodeJSON(resp, &keys); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(keys) != 1 || keys[0] != "AIza...wxyz" {
		t.Errorf("keys = %v", keys)
	}
}

func TestDecodeJSONErrorBody(t *testing.T) {
	ts := newTestServer(t, nil)

	client := ts.client()
	resp, err := client.get(ctx, "/nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out any
	err = decodeJSON(resp, &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to mention the status code", err.Error())
	}
}

func TestExtractFileTextPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(path, []byte("hello from a file"), 0o644); err != nil {
		t.Fatal(err)
	}

	text, err := extractFileText(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello from a file" {
		t.Errorf("text = %q", text)
	}
}

func TestExtractFileTextMissing(t *testing.T) {
	if _, err := extractFileText("/nonexistent/file.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorGreen, "hi"); strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorGreen, "hi"); !strings.Contains(result, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}
