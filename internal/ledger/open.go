package ledger

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/sheets-ledger/internal/config"
	"github.com/dvloznov/sheets-ledger/internal/sheets"
)

// FromConfig builds a Ledger over the configured table backend and identity
// scheme. Missing sheet credentials are logged, not returned: they surface
// as configuration errors on first use.
func FromConfig(cfg *config.Config, log zerolog.Logger, opts ...Option) (*Ledger, error) {
	scheme, err := SchemeByName(cfg.RowIdentity)
	if err != nil {
		return nil, fmt.Errorf("FromConfig: %w", err)
	}

	var source sheets.Source
	switch cfg.TableBackend {
	case config.BackendMemory:
		log.Warn().Msg("Using in-memory table - records are lost on restart")
		source = sheets.NewMemoryTable()
	case config.BackendSheets:
		if cfg.SpreadsheetID == "" || cfg.Credentials == "" {
			log.Warn().Msg("SPREADSHEET_ID or GOOGLE_CREDENTIALS missing - sheet requests will fail")
		}
		source = sheets.NewProvider(cfg.SpreadsheetID, cfg.Credentials, log)
	default:
		return nil, fmt.Errorf("FromConfig: unknown table backend %q", cfg.TableBackend)
	}

	return New(source, scheme, opts...), nil
}
