// Package config loads the reporting service configuration.
//
// Values are read from a YAML file, then overridden from RECON_* environment variables, then
// validated and defaulted. The result is returned to the caller and injected from there.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"recon-report/internal/aggregate"
	"recon-report/internal/domain"
	"recon-report/internal/export"
	"recon-report/internal/gateway"
	"recon-report/internal/usecase"
)

const (
	DEFAULT_CONFIG_FILE = "reconreport.yaml"
	DEFAULT_PORT        = "5001"
	DEFAULT_TTL_MINUTES = 60
	DEFAULT_TIMEOUT_SEC = 120
)

type ServerConfig struct {
	Port              string  `yaml:"port" envconfig:"RECON_SERVER_PORT"`
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"RECON_SERVER_RPS"`
	Burst             int     `yaml:"burst" envconfig:"RECON_SERVER_BURST"`
}

type MatcherConfig struct {
	URL               string `yaml:"url" envconfig:"RECON_MATCHER_URL"`
	APIKey            string `yaml:"api_key" envconfig:"RECON_MATCHER_API_KEY"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" envconfig:"RECON_MATCHER_TIMEOUT_SECONDS"`
	DefaultMode       string `yaml:"default_mode" envconfig:"RECON_MATCHER_DEFAULT_MODE"`
	RequestsPerMinute int    `yaml:"requests_per_minute" envconfig:"RECON_MATCHER_RPM"`
}

type ReportConfig struct {
	CurrencySymbol         string `yaml:"currency_symbol" envconfig:"RECON_REPORT_CURRENCY_SYMBOL"`
	DocumentCurrencySymbol string `yaml:"document_currency_symbol" envconfig:"RECON_REPORT_DOCUMENT_CURRENCY_SYMBOL"`
	CompanyName            string `yaml:"company_name" envconfig:"RECON_REPORT_COMPANY_NAME"`
	Classification         string `yaml:"classification" envconfig:"RECON_REPORT_CLASSIFICATION"`
	CSVLabel               string `yaml:"csv_label" envconfig:"RECON_REPORT_CSV_LABEL"`
	PDFLabel               string `yaml:"pdf_label" envconfig:"RECON_REPORT_PDF_LABEL"`
	XLSXLabel              string `yaml:"xlsx_label" envconfig:"RECON_REPORT_XLSX_LABEL"`
	TopUnmatched           int    `yaml:"top_unmatched" envconfig:"RECON_REPORT_TOP_UNMATCHED"`
}

type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" envconfig:"RECON_SESSION_TTL_MINUTES"`
}

type Configuration struct {
	Server   ServerConfig  `yaml:"server"`
	Matcher  MatcherConfig `yaml:"matcher"`
	Report   ReportConfig  `yaml:"report"`
	Session  SessionConfig `yaml:"session"`
	LogLevel string        `yaml:"log_level" envconfig:"RECON_LOG_LEVEL"`
}

// Load reads file (a missing file is not an error), applies environment overrides and fills
// in defaults.
func Load(file string) (*Configuration, error) {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, &cnf); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", file, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		logrus.WithField("file", file).Debug("config file not found, using environment variables")
	} else {
		return nil, err
	}

	// override config from environment variables
	if err := envconfig.Process("recon", &cnf); err != nil {
		return nil, fmt.Errorf("could not read environment: %w", err)
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		return nil, err
	}
	return &cnf, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.Matcher.URL = strings.TrimSpace(cnf.Matcher.URL)
	cnf.Matcher.APIKey = strings.TrimSpace(cnf.Matcher.APIKey)
	cnf.Report.CompanyName = strings.TrimSpace(cnf.Report.CompanyName)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
	}
	if cnf.Server.RequestsPerSecond < 0 || cnf.Server.Burst < 0 {
		return errors.New("rate limit values cannot be negative")
	}
	if cnf.Server.RequestsPerSecond > 0 && cnf.Server.Burst == 0 {
		cnf.Server.Burst = 2 * int(cnf.Server.RequestsPerSecond)
		if cnf.Server.Burst == 0 {
			cnf.Server.Burst = 1
		}
	}

	if cnf.Matcher.TimeoutSeconds <= 0 {
		cnf.Matcher.TimeoutSeconds = DEFAULT_TIMEOUT_SEC
	}
	if cnf.Matcher.RequestsPerMinute < 0 {
		return errors.New("matcher requests per minute cannot be negative")
	}
	cnf.Matcher.DefaultMode = strings.ToLower(strings.TrimSpace(cnf.Matcher.DefaultMode))
	if cnf.Matcher.DefaultMode == "" {
		cnf.Matcher.DefaultMode = string(domain.ModePrecise)
	}
	if !domain.MatchMode(cnf.Matcher.DefaultMode).IsValid() {
		return fmt.Errorf("unknown matcher mode %q", cnf.Matcher.DefaultMode)
	}

	if cnf.Report.CurrencySymbol == "" {
		cnf.Report.CurrencySymbol = aggregate.DefaultCurrencySymbol
	}
	if cnf.Report.TopUnmatched <= 0 {
		cnf.Report.TopUnmatched = aggregate.DefaultTopN
	}

	if cnf.Session.TTLMinutes <= 0 {
		cnf.Session.TTLMinutes = DEFAULT_TTL_MINUTES
	}

	if cnf.LogLevel == "" {
		cnf.LogLevel = "info"
	}
	if _, err := logrus.ParseLevel(cnf.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// Level returns the configured logrus level.
func (cnf *Configuration) Level() logrus.Level {
	level, err := logrus.ParseLevel(cnf.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// SessionTTL is how long an idle report session is kept.
func (cnf *Configuration) SessionTTL() time.Duration {
	return time.Duration(cnf.Session.TTLMinutes) * time.Minute
}

// MatcherClient returns the matcher client settings.
func (cnf *Configuration) MatcherClient() gateway.MatcherConfig {
	return gateway.MatcherConfig{
		URL:               cnf.Matcher.URL,
		APIKey:            cnf.Matcher.APIKey,
		Timeout:           time.Duration(cnf.Matcher.TimeoutSeconds) * time.Second,
		RequestsPerMinute: cnf.Matcher.RequestsPerMinute,
	}
}

// ReportSettings returns the settings injected into every report session.
func (cnf *Configuration) ReportSettings() usecase.ReportSettings {
	settings := usecase.ReportSettings{
		CompanyName:    cnf.Report.CompanyName,
		Classification: cnf.Report.Classification,
		Currency:       aggregate.NewFormatter(cnf.Report.CurrencySymbol),
		TopN:           cnf.Report.TopUnmatched,
		DefaultMode:    domain.MatchMode(cnf.Matcher.DefaultMode),
		Labels:         map[export.Format]string{},
	}
	if cnf.Report.DocumentCurrencySymbol != "" {
		settings.DocumentCurrency = aggregate.NewFormatter(cnf.Report.DocumentCurrencySymbol)
	}
	for format, label := range map[export.Format]string{
		export.FormatCSV:  cnf.Report.CSVLabel,
		export.FormatPDF:  cnf.Report.PDFLabel,
		export.FormatXLSX: cnf.Report.XLSXLabel,
	} {
		if label = strings.TrimSpace(label); label != "" {
			settings.Labels[format] = label
		}
	}
	return settings
}
