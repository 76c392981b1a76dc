package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/spf13/cobra"

	"github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/config"
)

// --- translate ---

var translateCmd = &cobra.Command{
	Use:   "translate [text...]",
	Short: "Translate text or a file into a target language",
	Long: `Translate text or a file into a target language.

Examples:
  motargem translate --to fa "Hello, world"
  motargem translate --from en --to fa "Good morning"
  motargem translate --to en --file ./letter.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, _ := cmd.Flags().GetString("from")
		target, _ := cmd.Flags().GetString("to")
		file, _ := cmd.Flags().GetString("file")

		if target == "" {
			return fmt.Errorf("--to is required")
		}

		var text string
		switch {
		case file != "":
			extracted, err := extractFileText(file)
			if err != nil {
				return err
			}
			text = extracted
		case len(args) > 0:
			text = strings.Join(args, " ")
		default:
			return fmt.Errorf("provide text arguments or --file")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]string{
			"text":   text,
			"source": source,
			"target": target,
		}
		resp, err := client.post(cmd.Context(), "/translate", req)
		if err != nil {
			return err
		}

		var result struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			TranslatedText         string `json:"translated_text"`
			NewLanguage            *struct {
				Code string `json:"code"`
				Name string `json:"name"`
			} `json:"new_language"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.TranslatedText)
		if source == "" || source == "auto" {
			printStatus("Detected", "%s", result.DetectedSourceLanguage)
		}
		if result.NewLanguage != nil {
			printSuccess("Learned new language: %s (%s)", result.NewLanguage.Name, result.NewLanguage.Code)
		}
		return nil
	},
}

func init() {
	translateCmd.Flags().String("from", "auto", "source language code (auto to detect)")
	translateCmd.Flags().String("to", "", "target language code")
	translateCmd.Flags().String("file", "", "path to a .txt or .pdf file to translate")
}

// extractFileText reads translatable text from a file. PDFs go through
// the pdf reader; anything else is treated as plain text.
func extractFileText(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		f, r, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("opening pdf: %w", err)
		}
		defer f.Close()

		plain, err := r.GetPlainText()
		if err != nil {
			return "", fmt.Errorf("extracting pdf text: %w", err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(plain); err != nil {
			return "", fmt.Errorf("reading pdf text: %w", err)
		}
		return buf.String(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage translation history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List translation history, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/history")
		if err != nil {
			return err
		}

		var records []struct {
			ID         int64  `json:"id"`
			SourceLang string `json:"source_lang"`
			TargetLang string `json:"target_lang"`
			SourceText string `json:"source_text"`
			TargetText string `json:"target_text"`
		}
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No history.")
			return nil
		}

		for _, r := range records {
			src := r.SourceText
			if len(src) > 60 {
				src = src[:60] + "..."
			}
			dst := r.TargetText
			if len(dst) > 60 {
				dst = dst[:60] + "..."
			}
			fmt.Printf("%s  %s -> %s\n  %s\n  %s\n",
				colorize(colorCyan, fmt.Sprintf("%d", r.ID)),
				r.SourceLang, r.TargetLang, src, dst,
			)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a single history record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/history/"+args[0])
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted record %s", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history records",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL translation history. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/history")
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("History cleared")
		return nil
	},
}

func init() {
	historyClearCmd.Flags().Bool("confirm", false, "confirm history deletion")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// --- languages ---

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "Manage the language catalog",
}

var languagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and custom languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/languages")
		if err != nil {
			return err
		}

		var all []struct {
			Code        string `json:"code"`
			Name        string `json:"name"`
			EnglishName string `json:"englishName"`
			Dir         string `json:"dir"`
		}
		if err := decodeJSON(resp, &all); err != nil {
			return err
		}

		for _, l := range all {
			fmt.Printf("  %s  %s (%s) [%s]\n",
				colorize(colorBold, l.Code), l.Name, l.EnglishName, l.Dir)
		}
		return nil
	},
}

var languagesAddCmd = &cobra.Command{
	Use:   "add <code> <name>",
	Short: "Add a custom language, overriding a built-in with the same code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		englishName, _ := cmd.Flags().GetString("english-name")
		dir, _ := cmd.Flags().GetString("dir")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{
			"code":        args[0],
			"name":        args[1],
			"englishName": englishName,
			"dir":         dir,
		}
		resp, err := client.post(cmd.Context(), "/languages", body)
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Added language %s (%s)", args[0], args[1])
		return nil
	},
}

func init() {
	languagesAddCmd.Flags().String("english-name", "", "English name of the language")
	languagesAddCmd.Flags().String("dir", "ltr", "writing direction: ltr or rtl")
	languagesCmd.AddCommand(languagesListCmd)
	languagesCmd.AddCommand(languagesAddCmd)
}

// --- keys ---

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the Gemini API key pool",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured API keys (masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/keys")
		if err != nil {
			return err
		}

		var keys []string
		if err := decodeJSON(resp, &keys); err != nil {
			return err
		}

		if len(keys) == 0 {
			printWarning("No API keys configured. Add one with `motargem keys add <key>`.")
			return nil
		}

		for i, k := range keys {
			fmt.Printf("  %s  %s\n", colorize(colorCyan, fmt.Sprintf("[%d]", i)), k)
		}
		return nil
	},
}

var keysAddCmd = &cobra.Command{
	Use:   "add <key>",
	Short: "Add an API key to the rotation pool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/keys", map[string]string{"key": args[0]})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("API key added")
		return nil
	},
}

var keysRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove an API key by its list index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/keys/"+args[0])
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("API key removed")
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysAddCmd)
	keysCmd.AddCommand(keysRemoveCmd)
}

// --- settings ---

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read or write persisted application settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show a persisted setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/settings/"+args[0])
		if err != nil {
			return err
		}

		var result struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Printf("%v\n", result.Value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a persisted setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/settings/"+args[0], map[string]any{"value": args[1]})
		if err != nil {
			return err
		}
		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
