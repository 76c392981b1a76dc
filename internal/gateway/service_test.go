package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/gemini"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/langs"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/storage"
)

type fakeCreds struct {
	cred  string
	ok    bool
	calls int
}

func (f *fakeCreds) Next() (string, bool, error) {
	f.calls++
	return f.cred, f.ok, nil
}

type fakeCatalog struct{ all []storage.Language }

func (f fakeCatalog) All() ([]storage.Language, error) { return f.all, nil }

type fakeGenerator struct {
	out    string
	err    error
	calls  int
	prompt string
	cred   string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, apiKey, prompt string) (string, error) {
	f.calls++
	f.cred = apiKey
	f.prompt = prompt
	return f.out, f.err
}

func testCatalog() fakeCatalog {
	return fakeCatalog{all: langs.Builtin()}
}

func newTestService(gen *fakeGenerator) (*Service, *fakeCreds) {
	creds := &fakeCreds{cred: "key-1", ok: true}
	return NewService(creds, testCatalog(), gen, DefaultStatusMessages), creds
}

// TestEmptyInputShortCircuits verifies whitespace-only input returns
// immediately with the requested source echoed back and no network call.
func TestEmptyInputShortCircuits(t *testing.T) {
	gen := &fakeGenerator{}
	svc, creds := newTestService(gen)

	res, err := svc.Translate(context.Background(), "   ", "auto", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.DetectedSourceLanguage != "auto" || res.TranslatedText != "" {
		t.Errorf("got %+v, want detected=auto and empty text", res)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times, want 0", gen.calls)
	}
	if creds.calls != 0 {
		t.Errorf("credential pulled %d times for empty input, want 0", creds.calls)
	}
}

func TestNoCredential(t *testing.T) {
	gen := &fakeGenerator{}
	svc := NewService(&fakeCreds{ok: false}, testCatalog(), gen, nil)

	_, err := svc.Translate(context.Background(), "hello", "auto", "fa")
	if !errors.Is(err, ErrNoCredential) {
		t.Errorf("got %v, want ErrNoCredential", err)
	}
	if gen.calls != 0 {
		t.Errorf("generator called %d times without credential", gen.calls)
	}
}

func TestPromptEmbedsCatalogAndTarget(t *testing.T) {
	gen := &fakeGenerator{out: `{"detectedSourceLanguage":"en","translatedText":"سلام"}`}
	svc, _ := newTestService(gen)

	if _, err := svc.Translate(context.Background(), "hello", "auto", "fa"); err != nil {
		t.Fatalf("Translate: %v", err)
	}

	if gen.cred != "key-1" {
		t.Errorf("credential %q not passed through", gen.cred)
	}
	for _, want := range []string{"Persian", "en=English", "fa=Persian", "detectedSourceLanguage", "newLanguageInfo", "hello"} {
		if !strings.Contains(gen.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gen.prompt)
		}
	}
	if !strings.Contains(gen.prompt, "Detect the source language") {
		t.Error("auto source did not request detection")
	}
}

func TestPromptFixedSourceSkipsDetection(t *testing.T) {
	gen := &fakeGenerator{out: `{"detectedSourceLanguage":"de","translatedText":"hallo"}`}
	svc, _ := newTestService(gen)

	if _, err := svc.Translate(context.Background(), "hello", "de", "en"); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if strings.Contains(gen.prompt, "Detect the source language") {
		t.Error("fixed source still requested detection")
	}
	if !strings.Contains(gen.prompt, `"de"`) {
		t.Error("prompt missing fixed source code")
	}
}

// TestFenceStrippingIdempotent checks that fenced and unfenced model
// output parse to the identical result.
func TestFenceStrippingIdempotent(t *testing.T) {
	plain := `{"detectedSourceLanguage":"fr","translatedText":"x"}`
	want, err := parseResult(plain)
	if err != nil {
		t.Fatalf("parseResult(plain): %v", err)
	}

	cases := map[string]string{
		"json fence":  "```json\n" + plain + "\n```",
		"bare fence":  "```\n" + plain + "\n```",
		"extra space": "  ```json\n" + plain + "\n```  ",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := parseResult(raw)
			if err != nil {
				t.Fatalf("parseResult: %v", err)
			}
			if got != want {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseResultUnparsable(t *testing.T) {
	for _, raw := range []string{"sorry, I cannot translate that", "```json\n{broken\n```", ""} {
		if _, err := parseResult(raw); !errors.Is(err, ErrUnparsableResult) {
			t.Errorf("parseResult(%q): got %v, want ErrUnparsableResult", raw, err)
		}
	}
}

func TestParseResultMissingFields(t *testing.T) {
	for _, raw := range []string{
		`{"translatedText":"x"}`,
		`{"detectedSourceLanguage":"fr"}`,
		`{"detectedSourceLanguage":""}`,
		`{}`,
	} {
		if _, err := parseResult(raw); !errors.Is(err, gemini.ErrMalformedResponse) {
			t.Errorf("parseResult(%q): got %v, want ErrMalformedResponse", raw, err)
		}
	}
}

func TestParseResultNewLanguagePassthrough(t *testing.T) {
	raw := `{"detectedSourceLanguage":"tlh","translatedText":"x","newLanguageInfo":{"code":"tlh","name":"کلینگون","englishName":"Klingon","dir":"ltr"}}`
	res, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult: %v", err)
	}
	if res.NewLanguage == nil || res.NewLanguage.Code != "tlh" || res.NewLanguage.EnglishName != "Klingon" {
		t.Errorf("got %+v, want Klingon descriptor", res.NewLanguage)
	}
}

func TestRemoteRejectionClassified(t *testing.T) {
	gen := &fakeGenerator{err: &gemini.StatusError{Code: http.StatusTooManyRequests, Detail: "quota"}}
	classified := ""
	svc := NewService(&fakeCreds{cred: "k", ok: true}, testCatalog(), gen, func(status int) string {
		classified = DefaultStatusMessages(status)
		return classified
	})

	_, err := svc.Translate(context.Background(), "hello", "auto", "fa")

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("got %v, want *RemoteError", err)
	}
	if re.Message != classified || re.Message == "" {
		t.Errorf("message %q did not come from the classifier", re.Message)
	}
	if re.Cause == nil || re.Cause.Code != http.StatusTooManyRequests {
		t.Errorf("cause %+v missing original status", re.Cause)
	}
}

func TestNetworkFailurePropagates(t *testing.T) {
	gen := &fakeGenerator{err: gemini.ErrNetwork}
	svc, _ := newTestService(gen)

	_, err := svc.Translate(context.Background(), "hello", "auto", "fa")
	if !errors.Is(err, gemini.ErrNetwork) {
		t.Errorf("got %v, want ErrNetwork", err)
	}
	if gen.calls != 1 {
		t.Errorf("generator called %d times, want exactly 1 (no retry)", gen.calls)
	}
}
