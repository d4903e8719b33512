package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/prodhub/productivity-hub/internal/model"
)

// PluginRepo persists the set of plugins a user has enabled, one row per
// (user, plugin) pair with an opaque JSON settings blob.
type PluginRepo struct{ DB *sql.DB }

func NewPluginRepo(db *sql.DB) *PluginRepo { return &PluginRepo{DB: db} }

// ListEnabled returns the user's enabled plugins ordered by enable time.
func (r *PluginRepo) ListEnabled(ctx context.Context, userID string) ([]model.EnabledPlugin, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT user_id, plugin_id, settings, enabled_at
		 FROM user_enabled_plugins WHERE user_id=? ORDER BY enabled_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EnabledPlugin
	for rows.Next() {
		var (
			p   model.EnabledPlugin
			raw []byte
		)
		if err := rows.Scan(&p.UserID, &p.PluginID, &raw, &p.EnabledAt); err != nil {
			return nil, err
		}
		p.Settings = json.RawMessage(raw)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Enable inserts an enabled-plugin row. The primary key on
// (user_id, plugin_id) makes double enables a duplicate-key error, which
// is mapped to ErrPluginAlreadyEnabled.
func (r *PluginRepo) Enable(ctx context.Context, userID, pluginID string, settings json.RawMessage) (model.EnabledPlugin, error) {
	if len(settings) == 0 {
		settings = json.RawMessage("{}")
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO user_enabled_plugins (user_id, plugin_id, settings, enabled_at)
		 VALUES (?,?,?,NOW())`,
		userID, pluginID, []byte(settings))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.EnabledPlugin{}, ErrPluginAlreadyEnabled
		}
		return model.EnabledPlugin{}, err
	}
	return r.get(ctx, userID, pluginID)
}

// Disable removes an enabled-plugin row. Returns ErrPluginNotEnabled when
// no row was deleted.
func (r *PluginRepo) Disable(ctx context.Context, userID, pluginID string) error {
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM user_enabled_plugins WHERE user_id=? AND plugin_id=?`,
		userID, pluginID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPluginNotEnabled
	}
	return nil
}

// UpdateSettings replaces the settings blob of an enabled plugin. Returns
// ErrNotFound when the plugin is not enabled for the user.
func (r *PluginRepo) UpdateSettings(ctx context.Context, userID, pluginID string, settings json.RawMessage) (model.EnabledPlugin, error) {
	if len(settings) == 0 {
		settings = json.RawMessage("{}")
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE user_enabled_plugins SET settings=? WHERE user_id=? AND plugin_id=?`,
		[]byte(settings), userID, pluginID)
	if err != nil {
		return model.EnabledPlugin{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.EnabledPlugin{}, err
	}
	if n == 0 {
		// Settings may be unchanged; distinguish a missing row from a
		// no-op update before reporting not found.
		if _, err := r.get(ctx, userID, pluginID); err == nil {
			return r.get(ctx, userID, pluginID)
		}
		return model.EnabledPlugin{}, ErrNotFound
	}
	return r.get(ctx, userID, pluginID)
}

func (r *PluginRepo) get(ctx context.Context, userID, pluginID string) (model.EnabledPlugin, error) {
	var (
		p   model.EnabledPlugin
		raw []byte
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT user_id, plugin_id, settings, enabled_at
		 FROM user_enabled_plugins WHERE user_id=? AND plugin_id=? LIMIT 1`,
		userID, pluginID).Scan(&p.UserID, &p.PluginID, &raw, &p.EnabledAt)
	if err == sql.ErrNoRows {
		return model.EnabledPlugin{}, ErrNotFound
	}
	if err != nil {
		return model.EnabledPlugin{}, err
	}
	p.Settings = json.RawMessage(raw)
	return p, nil
}
