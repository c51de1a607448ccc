package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const minimalConfig = `
assets:
  consent_template: consent.png
  transfer_template: transfer.png
  font: NanumGothic.ttf
directory:
  path: schools.xlsx
email:
  from: noreply@example.com
session:
  ttl: 30m
notices:
  intro: "**안내**"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearMailEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SMTP_SERVER", "SMTP_PORT", "MAIL_FROM", "MAIL_PASSWORD"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearMailEnv(t)

	cfg, err := loadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	want := Config{
		Listen:      ":8501",
		TimeZone:    "Asia/Seoul",
		NamePattern: defaultNamePattern,
		Assets: AssetsConfig{
			ConsentTemplate:  "consent.png",
			TransferTemplate: "transfer.png",
			Font:             "NanumGothic.ttf",
			TemplateDPI:      200,
			AddressWrap:      10,
		},
		Directory: DirectoryConfig{
			Path:         "schools.xlsx",
			RegionColumn: "지역",
			SchoolColumn: "학교",
			EmailColumn:  "이메일",
		},
		SMTP:    SMTPConfig{Port: 587, Username: "noreply@example.com"},
		Email:   EmailConfig{From: "noreply@example.com", FromName: "전입예정확인서 시스템"},
		Session: SessionConfig{TTL: 30 * time.Minute},
		Notices: map[string]string{"intro": "**안내**"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("loadConfig() mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.location().String(); got != "Asia/Seoul" {
		t.Errorf("location() = %q, want Asia/Seoul", got)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("MAIL_FROM", "forms@example.com")
	t.Setenv("MAIL_PASSWORD", "secret")

	cfg, err := loadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}

	want := SMTPConfig{Host: "smtp.example.com", Port: 2525, Username: "forms@example.com", Password: "secret"}
	if diff := cmp.Diff(want, cfg.SMTP); diff != "" {
		t.Errorf("SMTP mismatch (-want +got):\n%s", diff)
	}
	if cfg.Email.From != "forms@example.com" {
		t.Errorf("Email.From = %q, want forms@example.com", cfg.Email.From)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing font",
			content: strings.Replace(minimalConfig, "  font: NanumGothic.ttf\n", "", 1),
			wantErr: "assets.font",
		},
		{
			name:    "unsupported wrap width",
			content: strings.Replace(minimalConfig, "  font: NanumGothic.ttf", "  font: NanumGothic.ttf\n  address_wrap: 15", 1),
			wantErr: "address_wrap",
		},
		{
			name:    "bad session key",
			content: strings.Replace(minimalConfig, "  ttl: 30m", "  ttl: 30m\n  key: abcd", 1),
			wantErr: "session.key",
		},
		{
			name:    "bad timezone",
			content: minimalConfig + "timezone: Mars/Olympus\n",
			wantErr: "timezone",
		},
		{
			name:    "bad SMTP_PORT",
			content: minimalConfig,
			env:     map[string]string{"SMTP_PORT": "smtp"},
			wantErr: "SMTP_PORT",
		},
		{
			name:    "malformed yaml",
			content: "assets: [",
			wantErr: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearMailEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("loadConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("loadConfig() error = %v, want read failure", err)
	}
}
