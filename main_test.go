package main

import (
	"errors"
	"image"
	"path/filepath"
	"testing"
)

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"no argument", []string{"transferform"}, "config.yaml"},
		{"explicit path", []string{"transferform", "/etc/transferform.yaml"}, "/etc/transferform.yaml"},
		{"empty argument", []string{"transferform", ""}, "config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := configPath(tt.args)
			if got != tt.expected {
				t.Errorf("configPath(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestNewWorkflow(t *testing.T) {
	cfg := testAssets(t, t.TempDir())

	wf, err := newWorkflow(cfg, &fakeMailer{}, testNow, testLogger())
	if err != nil {
		t.Fatalf("newWorkflow() error = %v", err)
	}
	for _, name := range []string{layoutConsent, layoutTransfer} {
		page, ok := wf.pages[name]
		if !ok {
			t.Fatalf("page %s not loaded", name)
		}
		if got := page.Bounds().Size(); got != image.Pt(testPageWidth, testPageHeight) {
			t.Errorf("page %s size = %v", name, got)
		}
	}

	d, err := wf.directory.Load()
	if err != nil {
		t.Fatalf("directory.Load() error = %v", err)
	}
	if !d.HasSchool("새솔", "새솔초등학교") {
		t.Error("directory is missing 새솔초등학교")
	}

	if _, err := newServer(cfg, wf, testLogger()); err != nil {
		t.Errorf("newServer() error = %v", err)
	}
}

func TestNewWorkflowConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(t *testing.T, cfg *Config)
	}{
		{"missing font", func(t *testing.T, cfg *Config) {
			cfg.Assets.Font = filepath.Join(t.TempDir(), "missing.ttf")
		}},
		{"missing consent template", func(t *testing.T, cfg *Config) {
			cfg.Assets.ConsentTemplate = filepath.Join(t.TempDir(), "missing.png")
		}},
		{"template too small for the layout", func(t *testing.T, cfg *Config) {
			path := filepath.Join(t.TempDir(), "small.png")
			writePNG(t, path, blankPage(800, 600))
			cfg.Assets.TransferTemplate = path
		}},
		{"invalid name pattern", func(t *testing.T, cfg *Config) {
			cfg.NamePattern = "["
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testAssets(t, t.TempDir())
			tt.modify(t, cfg)

			_, err := newWorkflow(cfg, &fakeMailer{}, testNow, testLogger())
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Errorf("newWorkflow() error = %v, want *ConfigurationError", err)
			}
		})
	}
}

func TestNewServerBadSessionKey(t *testing.T) {
	cfg := testAssets(t, t.TempDir())
	wf, err := newWorkflow(cfg, &fakeMailer{}, testNow, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	cfg.Session.Key = "not-hex"

	_, err = newServer(cfg, wf, testLogger())
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) || cerr.Resource != "session" {
		t.Errorf("newServer() error = %v, want session *ConfigurationError", err)
	}
}
