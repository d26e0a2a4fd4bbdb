package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bounty_hunter/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var connectionColumns = []string{
	"id",
	"user_id",
	"platform",
	"platform_user_id",
	"platform_username",
	"access_token",
	"refresh_token",
	"token_expires_at",
	"connected_at",
	"is_active",
}

type socialConnection struct {
	ID               uuid.UUID      `db:"id"`
	UserID           uuid.UUID      `db:"user_id"`
	Platform         string         `db:"platform"`
	PlatformUserID   string         `db:"platform_user_id"`
	PlatformUsername sql.NullString `db:"platform_username"`
	AccessToken      sql.NullString `db:"access_token"`
	RefreshToken     sql.NullString `db:"refresh_token"`
	TokenExpiresAt   *time.Time     `db:"token_expires_at"`
	ConnectedAt      time.Time      `db:"connected_at"`
	IsActive         bool           `db:"is_active"`
}

func (r *Repository) toConnection(row *socialConnection) (*model.SocialConnection, error) {
	conn := &model.SocialConnection{
		ID:               row.ID,
		UserID:           row.UserID,
		Platform:         model.Platform(row.Platform),
		PlatformUserID:   row.PlatformUserID,
		PlatformUsername: row.PlatformUsername.String,
		ConnectedAt:      row.ConnectedAt,
		IsActive:         row.IsActive,
	}

	if !row.AccessToken.Valid && !row.RefreshToken.Valid {
		return conn, nil
	}

	access, err := r.open(row.AccessToken.String)
	if err != nil {
		return nil, fmt.Errorf("failed to open access token: %w", err)
	}
	refresh, err := r.open(row.RefreshToken.String)
	if err != nil {
		return nil, fmt.Errorf("failed to open refresh token: %w", err)
	}

	conn.Tokens = &model.OAuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    row.TokenExpiresAt,
	}
	return conn, nil
}

func (r *Repository) seal(v string) (sql.NullString, error) {
	if v == "" {
		return sql.NullString{}, nil
	}
	if r.box == nil {
		return sql.NullString{String: v, Valid: true}, nil
	}
	sealed, err := r.box.Seal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: sealed, Valid: true}, nil
}

func (r *Repository) open(v string) (string, error) {
	if r.box == nil {
		return v, nil
	}
	return r.box.Open(v)
}

// UpsertConnection writes the connection for (user, platform), replacing the
// previous one and reactivating it.
func (r *Repository) UpsertConnection(ctx context.Context, in model.ConnectionInput) (*model.SocialConnection, error) {
	var (
		access, refresh sql.NullString
		expiresAt       *time.Time
		err             error
	)
	if in.Tokens != nil {
		if access, err = r.seal(in.Tokens.AccessToken); err != nil {
			return nil, fmt.Errorf("failed to seal access token: %w", err)
		}
		if refresh, err = r.seal(in.Tokens.RefreshToken); err != nil {
			return nil, fmt.Errorf("failed to seal refresh token: %w", err)
		}
		expiresAt = in.Tokens.ExpiresAt
	}

	query, args, err := squirrel.
		Insert("social_connections").
		Columns(
			"user_id",
			"platform",
			"platform_user_id",
			"platform_username",
			"access_token",
			"refresh_token",
			"token_expires_at",
			"connected_at",
			"is_active",
		).
		Values(
			in.UserID,
			string(in.Platform),
			in.PlatformUserID,
			in.PlatformUsername,
			access,
			refresh,
			expiresAt,
			time.Now(),
			true,
		).
		Suffix(`ON CONFLICT (user_id, platform) DO UPDATE SET
			platform_user_id = EXCLUDED.platform_user_id,
			platform_username = EXCLUDED.platform_username,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			connected_at = EXCLUDED.connected_at,
			is_active = true`).
		Suffix("RETURNING " + joinColumns(connectionColumns)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert query: %w", err)
	}

	var row socialConnection
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert social connection: %w", err)
	}

	return r.toConnection(&row)
}

// DeactivateConnection flags the connection inactive. Only the owner's rows
// match.
func (r *Repository) DeactivateConnection(ctx context.Context, userID, connectionID uuid.UUID) error {
	query, args, err := squirrel.
		Update("social_connections").
		Set("is_active", false).
		Where(squirrel.Eq{
			"id":      connectionID,
			"user_id": userID,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to deactivate connection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) GetActiveConnection(ctx context.Context, userID uuid.UUID, platform model.Platform) (*model.SocialConnection, error) {
	query, args, err := squirrel.
		Select(connectionColumns...).
		From("social_connections").
		Where(squirrel.Eq{
			"user_id":   userID,
			"platform":  string(platform),
			"is_active": true,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row socialConnection
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return r.toConnection(&row)
}

func (r *Repository) ListActiveConnections(ctx context.Context, userID uuid.UUID) ([]*model.SocialConnection, error) {
	query, args, err := squirrel.
		Select(connectionColumns...).
		From("social_connections").
		Where(squirrel.Eq{
			"user_id":   userID,
			"is_active": true,
		}).
		OrderBy("connected_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []socialConnection
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	out := make([]*model.SocialConnection, 0, len(rows))
	for i := range rows {
		conn, err := r.toConnection(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, conn)
	}
	return out, nil
}

// ConnectedPlatforms lists the platforms userID has an active connection on.
func (r *Repository) ConnectedPlatforms(ctx context.Context, userID uuid.UUID) ([]model.Platform, error) {
	query, args, err := squirrel.
		Select("coalesce(array_agg(platform ORDER BY platform), '{}') AS platforms").
		From("social_connections").
		Where(squirrel.Eq{
			"user_id":   userID,
			"is_active": true,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var platforms pq.StringArray
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&platforms); err != nil {
		return nil, err
	}

	out := make([]model.Platform, len(platforms))
	for i, p := range platforms {
		out[i] = model.Platform(p)
	}
	return out, nil
}
