package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/gateway"
	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/storage"
)

const recentHistoryLimit = 10

// NewMCPServer creates an MCP server exposing translation tools and the
// local catalog/history as resources. It rides the same dependencies as
// the HTTP handler.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"motargem",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("motargem - local translation service backed by Gemini with a persistent history and language catalog."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("translate",
			mcp.WithDescription("Translate text into a target language. Source language is auto-detected unless given."),
			mcp.WithString("text", mcp.Description("The text to translate"), mcp.Required()),
			mcp.WithString("target", mcp.Description("Target language code (e.g. fa, en)"), mcp.Required()),
			mcp.WithString("source", mcp.Description("Source language code; omit or use \"auto\" to detect")),
		),
		mcpTranslate(deps),
	)

	s.AddTool(
		mcp.NewTool("register_language",
			mcp.WithDescription("Add a custom language to the catalog, overriding a built-in entry with the same code."),
			mcp.WithString("code", mcp.Description("Language code"), mcp.Required()),
			mcp.WithString("name", mcp.Description("Localized display name"), mcp.Required()),
			mcp.WithString("englishName", mcp.Description("English name of the language")),
			mcp.WithString("dir", mcp.Description("Writing direction: ltr or rtl")),
		),
		mcpRegisterLanguage(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_history",
			mcp.WithDescription("Delete all stored translation history records."),
		),
		mcpClearHistory(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"history://recent",
			"Recent Translations",
			mcp.WithResourceDescription("Most recent translation history records"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"languages://catalog",
			"Language Catalog",
			mcp.WithResourceDescription("Built-in and custom languages, custom entries winning on code collision"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceLanguages(deps),
	)

	return s
}

func mcpTranslate(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		target, err := req.RequireString("target")
		if err != nil {
			return mcpError("target is required"), nil
		}
		source := req.GetString("source", "auto")
		if source == "" {
			source = "auto"
		}

		result, err := deps.Translator.Translate(ctx, text, source, target)
		if err != nil {
			if errors.Is(err, gateway.ErrNoCredential) {
				return mcpError("no API key configured; add one with `motargem keys add`"), nil
			}
			var re *gateway.RemoteError
			if errors.As(err, &re) {
				return mcpError(re.Message), nil
			}
			return mcpError(fmt.Sprintf("translation failed: %v", err)), nil
		}

		registerDiscoveredLanguage(deps, result.NewLanguage)

		if result.TranslatedText != "" {
			if st, err := deps.Store.Get(); err == nil {
				rec := storage.HistoryRecord{
					ID:         st.NewHistoryID(),
					SourceLang: result.DetectedSourceLanguage,
					TargetLang: target,
					SourceText: text,
					TargetText: result.TranslatedText,
				}
				if err := st.AppendHistory(rec); err != nil {
					slog.Error("could not append history record", "id", rec.ID, "error", err)
				}
			}
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRegisterLanguage(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		code, err := req.RequireString("code")
		if err != nil {
			return mcpError("code is required"), nil
		}
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		lang := storage.Language{
			Code:        code,
			Name:        name,
			EnglishName: req.GetString("englishName", ""),
			Dir:         req.GetString("dir", ""),
		}
		if err := deps.Registry.Register(lang); err != nil {
			return mcpError(fmt.Sprintf("failed to register language: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Registered language %s (%s)", lang.Code, lang.Name)), nil
	}
}

func mcpClearHistory(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := deps.Store.Get()
		if err != nil {
			return mcpError("local storage is unavailable"), nil
		}
		if err := st.ClearHistory(); err != nil {
			return mcpError(fmt.Sprintf("failed to clear history: %v", err)), nil
		}
		return mcpText("History cleared"), nil
	}
}

func mcpResourceHistory(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		st, err := deps.Store.Get()
		if err != nil {
			return nil, fmt.Errorf("storage unavailable: %w", err)
		}
		records, err := st.ListHistory()
		if err != nil {
			return nil, fmt.Errorf("failed to list history: %w", err)
		}
		if len(records) > recentHistoryLimit {
			records = records[:recentHistoryLimit]
		}

		b, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceLanguages(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		all, err := deps.Registry.All()
		if err != nil {
			return nil, fmt.Errorf("failed to list languages: %w", err)
		}

		b, err := json.Marshal(all)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal languages: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
