package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/parley/internal/catalog"
	"github.com/MikeSquared-Agency/parley/internal/session"
)

// DefaultSettings is returned when nothing has been saved yet.
var DefaultSettings = session.Settings{Sensitivity: 1.0, Scenario: catalog.ScenarioGeneral}

// GetSettings loads the saved settings, falling back to DefaultSettings.
func (s *Store) GetSettings(ctx context.Context) (session.Settings, error) {
	var (
		st       session.Settings
		scenario string
	)
	err := s.pool.QueryRow(ctx, `SELECT sensitivity, scenario FROM settings WHERE id = 1`).Scan(&st.Sensitivity, &scenario)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings, nil
	}
	if err != nil {
		return session.Settings{}, fmt.Errorf("query settings: %w", err)
	}
	st.Scenario = catalog.Scenario(scenario)
	return st, nil
}

// SaveSettings stores the settings row.
func (s *Store) SaveSettings(ctx context.Context, st session.Settings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO settings (id, sensitivity, scenario, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET
			sensitivity = EXCLUDED.sensitivity,
			scenario = EXCLUDED.scenario,
			updated_at = now()`,
		st.Sensitivity, string(st.Scenario),
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
