// Package i18n loads localized notification text from YAML bundles. Built-in
// locales are embedded; a directory override can add or replace them.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// DefaultLang is the fallback locale for unknown languages.
const DefaultLang = "en"

type Field struct {
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Inline bool   `yaml:"inline"`
}

type EmbedMessages struct {
	Title       string  `yaml:"title"`
	Description string  `yaml:"description"`
	LinkButton  string  `yaml:"linkBtn"`
	Fields      []Field `yaml:"fields"`
}

type EventMessages struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Messages struct {
	Discord struct {
		Embed struct {
			Online  EmbedMessages `yaml:"online"`
			Offline EmbedMessages `yaml:"offline"`
		} `yaml:"embed"`
		Event EventMessages `yaml:"event"`
	} `yaml:"discord"`
}

// Bundle holds the messages of every loaded locale.
type Bundle struct {
	messages map[string]Messages
}

// Load builds a bundle from the embedded locales, then overlays any *.yaml or
// *.yml files found in dir (empty dir skips the overlay). The "en" locale must
// exist.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{messages: make(map[string]Messages)}

	entries, err := fs.ReadDir(localesFS, "locales")
	if err != nil {
		return nil, fmt.Errorf("read embedded locales: %w", err)
	}
	for _, e := range entries {
		raw, err := localesFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, err
		}
		if err := b.add(e.Name(), raw); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read i18n dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext != ".yaml" && ext != ".yml" {
				slog.Debug("skipping non-yaml file in i18n dir", slog.String("file", e.Name()))
				continue
			}
			raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return nil, err
			}
			if err := b.add(e.Name(), raw); err != nil {
				return nil, err
			}
			slog.Info("loaded locale override", slog.String("file", e.Name()))
		}
	}

	if _, ok := b.messages[DefaultLang]; !ok {
		return nil, fmt.Errorf("missing %q locale", DefaultLang)
	}
	return b, nil
}

func (b *Bundle) add(fileName string, raw []byte) error {
	var msgs Messages
	if err := yaml.Unmarshal(raw, &msgs); err != nil {
		return fmt.Errorf("parse locale %s: %w", fileName, err)
	}
	lang := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	b.messages[lang] = msgs
	return nil
}

// Messages returns the bundle for a language, falling back to the default locale.
func (b *Bundle) Messages(lang string) Messages {
	if m, ok := b.messages[lang]; ok {
		return m
	}
	return b.messages[DefaultLang]
}

// Format substitutes %variable% placeholders in a localized string.
func Format(s string, vars map[string]string) string {
	for key, value := range vars {
		s = strings.ReplaceAll(s, key, value)
	}
	return s
}
