// Package doctor validates a tickflow configuration and its bar database
// before a run starts, so misconfiguration surfaces as a report instead of
// a mid-run fault.
package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/ahroberts/tickflow/internal/config"
	"github.com/ahroberts/tickflow/internal/storage"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Doctor validates a loaded configuration against the environment.
type Doctor struct {
	cfg        *config.Config
	configPath string
}

// New creates a Doctor for a loaded config. configPath is the file the
// config came from, used for checksum checks.
func New(cfg *config.Config, configPath string) *Doctor {
	return &Doctor{cfg: cfg, configPath: configPath}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context) *Result {
	r := &Result{Valid: true}

	d.checkChecksums(r)
	d.checkAPIConfig(r)
	d.checkFeeds(r)
	d.checkBroker(r)
	d.checkDatabase(ctx, r)

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

// checkChecksums warns when the config file is not locked.
func (d *Doctor) checkChecksums(r *Result) {
	if d.configPath == "" {
		return
	}
	if _, err := config.LoadChecksums(d.configPath); err != nil {
		if os.IsNotExist(err) {
			d.addWarning(r, "config", "",
				"config file is not locked; run 'tickflow config lock' to detect drift")
			return
		}
		d.addError(r, "config", "", fmt.Sprintf("checksums manifest unreadable: %v", err))
	}
}

// checkAPIConfig checks API server settings.
func (d *Doctor) checkAPIConfig(r *Result) {
	if !d.cfg.API.Enabled {
		return
	}
	if d.cfg.API.Listen == "" {
		d.addError(r, "api", "api.listen", "api.listen is required when API is enabled")
	}
	if d.cfg.API.APIKey == "" {
		d.addWarning(r, "api", "api.api_key", "API enabled but no authentication configured")
	}
}

// checkFeeds warns about feed setups that load but do nothing useful.
func (d *Doctor) checkFeeds(r *Result) {
	if len(d.cfg.Feeds) == 0 {
		d.addWarning(r, "feeds", "feeds", "no feeds configured; a run will stop immediately")
	}
	for _, f := range d.cfg.Feeds {
		if f.Kind == config.KindLive && f.Buffer == 0 {
			d.addWarning(r, "feeds", fmt.Sprintf("feeds.%s.buffer", f.Name),
				"live feed uses the default buffer; bursts beyond it are dropped")
		}
	}
}

func (d *Doctor) checkBroker(r *Result) {
	if d.cfg.Broker.Enabled && d.cfg.Broker.Cash == 0 {
		d.addWarning(r, "broker", "broker.cash", "broker enabled with zero cash; every buy will be rejected")
	}
}

// checkDatabase opens the bar database and verifies each historical feed
// has data to replay.
func (d *Doctor) checkDatabase(ctx context.Context, r *Result) {
	db, err := storage.Open(ctx, d.cfg.Data.Database)
	if err != nil {
		d.addError(r, "storage", "data.database", fmt.Sprintf("cannot open database: %v", err))
		return
	}
	defer db.Close()

	bars := storage.NewBarStore(db)
	for _, f := range d.cfg.Feeds {
		if f.Kind != config.KindHistorical {
			continue
		}
		n, err := bars.Count(ctx, f.Symbol)
		if err != nil {
			d.addError(r, "storage", fmt.Sprintf("feeds.%s", f.Name),
				fmt.Sprintf("cannot count bars for %s: %v", f.Symbol, err))
			continue
		}
		if n == 0 {
			d.addWarning(r, "storage", fmt.Sprintf("feeds.%s", f.Name),
				fmt.Sprintf("no bars stored for symbol %s; feed will be at end of data immediately", f.Symbol))
		}
	}
}
