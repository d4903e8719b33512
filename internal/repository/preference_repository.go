package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/prodhub/productivity-hub/internal/model"
	"github.com/prodhub/productivity-hub/internal/theme"
)

// PreferenceRepo persists the per-user theme preferences row. Every
// read-then-write update runs inside a transaction with a row lock so that
// concurrent requests from the same user (two devices) cannot lose
// updates; the last committed write wins.
type PreferenceRepo struct{ DB *sql.DB }

func NewPreferenceRepo(db *sql.DB) *PreferenceRepo { return &PreferenceRepo{DB: db} }

// CreateDefaults inserts the initial preferences row for a new user:
// current theme light, core themes enabled.
func (r *PreferenceRepo) CreateDefaults(ctx context.Context, userID string) error {
	enabled, err := json.Marshal(theme.CoreIDs())
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, current_theme, enabled_themes, updated_at)
		 VALUES (?,?,?,NOW())`,
		userID, theme.DefaultThemeID, enabled)
	return err
}

// Get returns the preferences row for a user, or ErrNotFound.
func (r *PreferenceRepo) Get(ctx context.Context, userID string) (model.Preferences, error) {
	return scanPreferences(r.DB.QueryRowContext(ctx,
		`SELECT user_id, current_theme, enabled_themes, updated_at
		 FROM user_preferences WHERE user_id=?`, userID))
}

// SetCurrentTheme switches the active theme. The membership check and the
// write happen under a row lock so the enabled set cannot change in
// between. Returns ErrThemeNotEnabled when themeID is not enabled.
func (r *PreferenceRepo) SetCurrentTheme(ctx context.Context, userID, themeID string) (model.Preferences, error) {
	return r.updateLocked(ctx, userID, func(p *model.Preferences) error {
		if !theme.IsEnabled(themeID, p.EnabledThemes) {
			return ErrThemeNotEnabled
		}
		p.CurrentTheme = themeID
		return nil
	})
}

// EnableTheme appends themeID to the enabled set. Returns
// ErrThemeAlreadyEnabled when it is already a member.
func (r *PreferenceRepo) EnableTheme(ctx context.Context, userID, themeID string) (model.Preferences, error) {
	return r.updateLocked(ctx, userID, func(p *model.Preferences) error {
		if theme.IsEnabled(themeID, p.EnabledThemes) {
			return ErrThemeAlreadyEnabled
		}
		p.EnabledThemes = append(p.EnabledThemes, themeID)
		return nil
	})
}

// DisableTheme removes themeID from the enabled set. Core themes must be
// rejected by the caller before reaching this point; the guard here is a
// backstop. When the active theme is disabled, the current theme is
// reassigned to the first remaining enabled theme in canonical order, so
// the currentTheme-in-enabledThemes invariant holds on every exit path.
func (r *PreferenceRepo) DisableTheme(ctx context.Context, userID, themeID string) (model.Preferences, error) {
	return r.updateLocked(ctx, userID, func(p *model.Preferences) error {
		if theme.IsCore(themeID) {
			return ErrCoreTheme
		}
		if !theme.IsEnabled(themeID, p.EnabledThemes) {
			return ErrThemeNotEnabled
		}
		remaining := make([]string, 0, len(p.EnabledThemes)-1)
		for _, id := range p.EnabledThemes {
			if id != themeID {
				remaining = append(remaining, id)
			}
		}
		if p.CurrentTheme == themeID {
			fallback := theme.FirstEnabled(remaining)
			if fallback == "" {
				return ErrNoEnabledTheme
			}
			p.CurrentTheme = fallback
		}
		p.EnabledThemes = remaining
		return nil
	})
}

// updateLocked runs mutate against the row loaded FOR UPDATE and writes
// the result back. The transaction is rolled back on every error path,
// including business-rule rejections, so the connection always returns to
// the pool.
func (r *PreferenceRepo) updateLocked(ctx context.Context, userID string, mutate func(*model.Preferences) error) (model.Preferences, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Preferences{}, err
	}
	defer func() { _ = tx.Rollback() }()

	p, err := scanPreferences(tx.QueryRowContext(ctx,
		`SELECT user_id, current_theme, enabled_themes, updated_at
		 FROM user_preferences WHERE user_id=? FOR UPDATE`, userID))
	if err != nil {
		return model.Preferences{}, err
	}
	if err := mutate(&p); err != nil {
		return model.Preferences{}, err
	}
	enabled, err := json.Marshal(p.EnabledThemes)
	if err != nil {
		return model.Preferences{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_preferences SET current_theme=?, enabled_themes=?, updated_at=NOW()
		 WHERE user_id=?`,
		p.CurrentTheme, enabled, userID); err != nil {
		return model.Preferences{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Preferences{}, err
	}
	return r.Get(ctx, userID)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanPreferences(row rowScanner) (model.Preferences, error) {
	var (
		p   model.Preferences
		raw []byte
	)
	err := row.Scan(&p.UserID, &p.CurrentTheme, &raw, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Preferences{}, ErrNotFound
	}
	if err != nil {
		return model.Preferences{}, err
	}
	if err := json.Unmarshal(raw, &p.EnabledThemes); err != nil {
		return model.Preferences{}, fmt.Errorf("decode enabled_themes: %w", err)
	}
	return p, nil
}
