package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Preferences are the user choices persisted between runs. They are loaded and saved
// explicitly by the application and applied on top of the report configuration; the
// reporting engine never reads them. Theme is stored but not interpreted.
type Preferences struct {
	Theme          string `yaml:"theme,omitempty"`
	CompanyName    string `yaml:"company_name,omitempty"`
	CurrencySymbol string `yaml:"currency_symbol,omitempty"`
}

// LoadPreferences reads preferences from path. A missing file yields the zero value.
func LoadPreferences(path string) (Preferences, error) {
	var p Preferences
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("could not read preferences: %w", err)
	}
	if err := yaml.Unmarshal(content, &p); err != nil {
		return p, fmt.Errorf("could not parse preferences %s: %w", path, err)
	}

	switch p.Theme = strings.ToLower(strings.TrimSpace(p.Theme)); p.Theme {
	case "", ThemeLight, ThemeDark:
	default:
		p.Theme = ""
	}
	return p, nil
}

// Apply overrides the report configuration with every preference that is set.
func (p Preferences) Apply(rc *ReportConfig) {
	if name := strings.TrimSpace(p.CompanyName); name != "" {
		rc.CompanyName = name
	}
	if p.CurrencySymbol != "" {
		rc.CurrencySymbol = p.CurrencySymbol
	}
}

// Save writes the preferences to path, creating its directory when needed.
func (p Preferences) Save(path string) error {
	content, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("could not encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create preferences directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("could not write preferences: %w", err)
	}
	return nil
}
