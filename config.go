package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type EmailConfig struct {
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// AssetsConfig points at the fixed template rasters, sample PDFs and the font.
type AssetsConfig struct {
	ConsentTemplate  string  `yaml:"consent_template"`
	TransferTemplate string  `yaml:"transfer_template"`
	ConsentSample    string  `yaml:"consent_sample"`
	TransferSample   string  `yaml:"transfer_sample"`
	Font             string  `yaml:"font"`
	TemplateDPI      float64 `yaml:"template_dpi"`
	AddressWrap      int     `yaml:"address_wrap"` // 10 or 20 depending on the transfer template revision
}

// DirectoryConfig describes the school spreadsheet.
type DirectoryConfig struct {
	Path         string `yaml:"path"`
	Sheet        string `yaml:"sheet"` // empty selects the first sheet
	RegionColumn string `yaml:"region_column"`
	SchoolColumn string `yaml:"school_column"`
	EmailColumn  string `yaml:"email_column"`
}

type SessionConfig struct {
	Key string        `yaml:"key"` // hex encoded, 32 bytes; generated when empty
	TTL time.Duration `yaml:"ttl"`
}

type Config struct {
	Listen      string            `yaml:"listen"`
	TimeZone    string            `yaml:"timezone"`
	NamePattern string            `yaml:"name_pattern"`
	Assets      AssetsConfig      `yaml:"assets"`
	Directory   DirectoryConfig   `yaml:"directory"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	Email       EmailConfig       `yaml:"email"`
	Session     SessionConfig     `yaml:"session"`
	Notices     map[string]string `yaml:"notices"` // stage key -> markdown
}

// loadConfig reads the YAML configuration, applies defaults and the SMTP
// environment overrides, and checks the result.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8501"
	}
	if c.TimeZone == "" {
		c.TimeZone = "Asia/Seoul"
	}
	if c.NamePattern == "" {
		c.NamePattern = defaultNamePattern
	}
	if c.Assets.TemplateDPI == 0 {
		c.Assets.TemplateDPI = 200
	}
	if c.Assets.AddressWrap == 0 {
		c.Assets.AddressWrap = 10
	}
	if c.Directory.RegionColumn == "" {
		c.Directory.RegionColumn = "지역"
	}
	if c.Directory.SchoolColumn == "" {
		c.Directory.SchoolColumn = "학교"
	}
	if c.Directory.EmailColumn == "" {
		c.Directory.EmailColumn = "이메일"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = "전입예정확인서 시스템"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 2 * time.Hour
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
}

// applyEnv lets the deployment environment supply the mail credentials.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("SMTP_SERVER"); ok && v != "" {
		c.SMTP.Host = v
	}
	if v, ok := lookup("SMTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		c.SMTP.Port = port
	}
	if v, ok := lookup("MAIL_FROM"); ok && v != "" {
		c.Email.From = v
	}
	if v, ok := lookup("MAIL_PASSWORD"); ok && v != "" {
		c.SMTP.Password = v
	}
	if c.SMTP.Username == "" {
		c.SMTP.Username = c.Email.From
	}
	return nil
}

func (c *Config) validate() error {
	required := map[string]string{
		"assets.consent_template":  c.Assets.ConsentTemplate,
		"assets.transfer_template": c.Assets.TransferTemplate,
		"assets.font":              c.Assets.Font,
		"directory.path":           c.Directory.Path,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("missing required setting %s", name)
		}
	}
	if c.Assets.AddressWrap != 10 && c.Assets.AddressWrap != 20 {
		return fmt.Errorf("assets.address_wrap must be 10 or 20, got %d", c.Assets.AddressWrap)
	}
	if _, err := regexp.Compile(c.NamePattern); err != nil {
		return fmt.Errorf("invalid name_pattern: %w", err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.TimeZone, err)
	}
	if c.Session.Key != "" {
		key, err := hex.DecodeString(c.Session.Key)
		if err != nil || len(key) != sessionKeySize {
			return fmt.Errorf("session.key must be %d hex encoded bytes", sessionKeySize)
		}
	}
	return nil
}

// location returns the configured time zone; validate has already checked it.
func (c *Config) location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
