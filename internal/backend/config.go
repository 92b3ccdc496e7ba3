package backend

import (
	"errors"
	"fmt"

	"scoreboard/internal/blob/google"
	"scoreboard/internal/config"
)

// Kind names a slot store.
type Kind string

const (
	SQLite Kind = config.BackendSQLite
	Sheets Kind = config.BackendSheets
	Memory Kind = config.BackendMemory
)

func (k Kind) valid() bool {
	switch k {
	case SQLite, Sheets, Memory:
		return true
	}
	return false
}

// Config carries only the settings of the chosen Kind that matter.
type Config struct {
	Kind       Kind
	SQLitePath string
	// SeedDir is read once by the memory store for <key>.json files.
	SeedDir string
	Sheets  google.Options
}

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		Kind:       Kind(app.DataBackend),
		SQLitePath: app.SQLiteDBPath,
		SeedDir:    app.DataDirectory,
		Sheets: google.Options{
			SpreadsheetID:   app.GoogleSpreadsheetID,
			SheetName:       app.GoogleSheetName,
			CredentialsJSON: app.GoogleServiceAccountJSON,
			CredentialsFile: app.GoogleServiceAccountFile,
			CacheTTL:        app.SheetsReadCacheTTL,
		},
	}
	if !cfg.Kind.valid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", app.DataBackend)
	}
	return cfg, nil
}

// Validate checks the settings the chosen Kind needs.
func (c Config) Validate() error {
	switch c.Kind {
	case SQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case Sheets:
		switch {
		case c.Sheets.SpreadsheetID == "":
			return errors.New("spreadsheet id is required for sheets backend")
		case c.Sheets.SheetName == "":
			return errors.New("sheet name is required for sheets backend")
		case c.Sheets.CredentialsJSON == "" && c.Sheets.CredentialsFile == "":
			return errors.New("service account credentials are required for sheets backend")
		}
	case Memory:
	default:
		return fmt.Errorf("invalid backend type: %s", c.Kind)
	}
	return nil
}
