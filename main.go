// Package main serves the residence transfer intake form (전입예정확인서).
//
// A guardian walks through four stages:
//   - select the destination region and school
//   - agree to the personal information consent
//   - fill in the transfer details and sign for student and guardian
//   - preview the generated two page PDF and submit it
//
// On submission the PDF is emailed to the school mailbox listed in the
// school directory spreadsheet. Nothing is stored on disk.
//
// Usage: transferform [config.yaml]
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"
)

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

const (
	// Version
	version = "1.0.0"

	defaultConfigPath = "config.yaml"
	shutdownTimeout   = 10 * time.Second

	layoutConsent  = "consent"
	layoutTransfer = "transfer"
)

// ---------------------------------------------------------------------------
// Application Wiring
// ---------------------------------------------------------------------------

// newWorkflow loads every asset named by cfg and checks the layouts against
// the template pages. All failures are configuration errors.
func newWorkflow(cfg *Config, mailer documentMailer, now func() time.Time, logger *slog.Logger) (*Workflow, error) {
	renderer, err := loadRenderer(cfg.Assets.Font)
	if err != nil {
		return nil, err
	}

	consent := Layout{Name: layoutConsent, Placements: consentPlacements}
	transfer := Layout{Name: layoutTransfer, Placements: transferPlacements(cfg.Assets.AddressWrap)}
	paths := map[string]string{
		layoutConsent:  cfg.Assets.ConsentTemplate,
		layoutTransfer: cfg.Assets.TransferTemplate,
	}

	pages := make(map[string]image.Image, len(paths))
	for _, l := range []Layout{consent, transfer} {
		page, err := loadTemplatePage(paths[l.Name])
		if err != nil {
			return nil, err
		}
		if err := l.check(page.Bounds().Size()); err != nil {
			return nil, &ConfigurationError{Resource: "layout " + l.Name, Err: err}
		}
		pages[l.Name] = page
	}

	validator, err := newValidator(cfg.NamePattern, now)
	if err != nil {
		return nil, &ConfigurationError{Resource: "name_pattern", Err: err}
	}

	return &Workflow{
		directory: xlsxDirectory{conf: cfg.Directory},
		validator: validator,
		renderer:  renderer,
		consent:   consent,
		transfer:  transfer,
		pages:     pages,
		dpi:       cfg.Assets.TemplateDPI,
		calendar:  newSchoolCalendar(),
		mailer:    mailer,
		now:       now,
		logger:    logger,
	}, nil
}

// newServer builds the HTTP front end around a workflow.
func newServer(cfg *Config, wf *Workflow, logger *slog.Logger) (*server, error) {
	sessions, err := newSessionStore(cfg.Session.Key, cfg.Session.TTL, wf.now)
	if err != nil {
		return nil, &ConfigurationError{Resource: "session", Err: err}
	}
	notices, err := renderNotices(cfg.Notices)
	if err != nil {
		return nil, &ConfigurationError{Resource: "notices", Err: err}
	}
	page, err := parsePageTemplate()
	if err != nil {
		return nil, err
	}

	return &server{
		wf:       wf,
		sessions: sessions,
		page:     page,
		notices:  notices,
		samples: map[string]string{
			layoutConsent:  cfg.Assets.ConsentSample,
			layoutTransfer: cfg.Assets.TransferSample,
		},
		location: cfg.location(),
		logger:   logger,
	}, nil
}

// run serves until ctx is cancelled, then drains in-flight requests.
func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	loc := cfg.location()
	now := func() time.Time { return time.Now().In(loc) }

	wf, err := newWorkflow(cfg, newMailer(cfg.SMTP, cfg.Email), now, logger)
	if err != nil {
		return err
	}
	// Fail early on an unreadable directory; it is reloaded on every use.
	if _, err := wf.directory.Load(); err != nil {
		return err
	}
	sv, err := newServer(cfg, wf, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           sv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Listen, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

// configPath returns the config file named on the command line or the default.
func configPath(args []string) string {
	if len(args) > 1 && args[1] != "" {
		return args[1]
	}
	return defaultConfigPath
}

func main() {
	// Handle --version flag
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("transferform v%s\n", version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := loadConfig(configPath(os.Args))
	if err != nil {
		logger.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		var cerr *ConfigurationError
		if errors.As(err, &cerr) {
			logger.Error("configuration failed", "resource", cerr.Resource, "error", cerr.Err)
		} else {
			logger.Error("server failed", "error", err)
		}
		os.Exit(1)
	}
}
