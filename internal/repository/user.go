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
)

var userColumns = []string{
	"id",
	"wallet_address",
	"username",
	"username_changed_at",
	"current_points",
	"current_rank",
	"referral_code",
	"referral_link",
	"is_admin",
	"x_connected_at",
	"connection_timestamp",
}

type User struct {
	ID                  uuid.UUID      `db:"id"`
	WalletAddress       string         `db:"wallet_address"`
	Username            string         `db:"username"`
	UsernameChangedAt   *time.Time     `db:"username_changed_at"`
	Points              int            `db:"current_points"`
	Rank                int            `db:"current_rank"`
	ReferralCode        sql.NullString `db:"referral_code"`
	ReferralLink        sql.NullString `db:"referral_link"`
	IsAdmin             bool           `db:"is_admin"`
	XConnectedAt        *time.Time     `db:"x_connected_at"`
	ConnectionTimestamp time.Time      `db:"connection_timestamp"`
}

func (u *User) toModel() *model.User {
	return &model.User{
		ID:                  u.ID,
		WalletAddress:       u.WalletAddress,
		Username:            u.Username,
		UsernameChangedAt:   u.UsernameChangedAt,
		Points:              u.Points,
		Rank:                u.Rank,
		ReferralCode:        u.ReferralCode.String,
		ReferralLink:        u.ReferralLink.String,
		IsAdmin:             u.IsAdmin,
		XConnectedAt:        u.XConnectedAt,
		ConnectionTimestamp: u.ConnectionTimestamp,
	}
}

type userReferrals struct {
	Username  string `db:"username"`
	Points    int    `db:"current_points"`
	Referrals int    `db:"referrals"`
}

// CreateUser inserts user. A duplicate wallet address is reported as
// ErrWalletTaken; any other duplicate (referral code, username) as
// ErrUniqueViolation.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"id":                   user.ID,
			"wallet_address":       user.WalletAddress,
			"username":             user.Username,
			"current_points":       user.Points,
			"current_rank":         user.Rank,
			"referral_code":        user.ReferralCode,
			"referral_link":        user.ReferralLink,
			"connection_timestamp": user.ConnectionTimestamp,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build user insert query: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", mapUserInsertError(err))
	}

	return nil
}

func mapUserInsertError(err error) error {
	constraint, ok := uniqueConstraint(err)
	switch {
	case !ok:
		return err
	case constraint == usersWalletConstraint:
		return ErrWalletTaken
	default:
		return ErrUniqueViolation
	}
}

func (r *Repository) getUser(ctx context.Context, where squirrel.Sqlizer) (*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) GetUserByWallet(ctx context.Context, wallet string) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"wallet_address": wallet})
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"id": id})
}

func (r *Repository) GetUserByReferralCode(ctx context.Context, code string) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"referral_code": code})
}

func (r *Repository) GetUserByReferralLink(ctx context.Context, link string) (*model.User, error) {
	return r.getUser(ctx, squirrel.Eq{"referral_link": link})
}

// RenameUser replaces the generated username once.
func (r *Repository) RenameUser(ctx context.Context, id uuid.UUID, username string) error {
	query, args, err := squirrel.
		Update("users").
		Set("username", username).
		Set("username_changed_at", time.Now()).
		Where(squirrel.Eq{
			"id":                  id,
			"username_changed_at": nil,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rename query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("failed to rename user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		if _, err := r.GetUserByID(ctx, id); err != nil {
			return err
		}
		return ErrUsernameLocked
	}

	return nil
}

// AddUserPoints is the direct-update path used when the points RPC fails.
func (r *Repository) AddUserPoints(ctx context.Context, id uuid.UUID, points int) error {
	query, args, err := squirrel.
		Update("users").
		Set("current_points", squirrel.Expr("current_points + ?", points)).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Repository) SetXConnectedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	query, args, err := squirrel.
		Update("users").
		Set("x_connected_at", at).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		OrderBy("current_points DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}

	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = users[i].toModel()
	}

	return out, nil
}

// CountUsersAbove returns how many users hold more than points.
func (r *Repository) CountUsersAbove(ctx context.Context, points int) (int, error) {
	query, args, err := squirrel.
		Select("count(*)").
		From("users").
		Where(squirrel.Gt{"current_points": points}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) CountActiveReferrals(ctx context.Context, referrerID uuid.UUID) (int, error) {
	query, args, err := squirrel.
		Select("count(*)").
		From("referrals").
		Where(squirrel.Eq{
			"referrer_id": referrerID,
			"status":      model.ReferralActive,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// GetReferrerUsername returns the username of whoever referred userID.
func (r *Repository) GetReferrerUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	query, args, err := squirrel.
		Select("u.username").
		From("referrals rf").
		Join("users u ON u.id = rf.referrer_id").
		Where(squirrel.Eq{"rf.referred_id": userID}).
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return "", err
	}

	var username string
	err = r.db.GetContext(ctx, &username, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return username, nil
}

// GetTopUsersWithReferrals counts active referrals for the top users by
// points, one query instead of a lookup per user.
func (r *Repository) GetTopUsersWithReferrals(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	top := squirrel.
		Select("id", "username", "current_points").
		From("users").
		OrderBy("current_points DESC").
		Limit(uint64(limit))

	query, args, err := squirrel.
		Select("t.username", "t.current_points", "count(rf.id) AS referrals").
		FromSelect(top, "t").
		LeftJoin("referrals rf ON rf.referrer_id = t.id AND rf.status = ?", model.ReferralActive).
		GroupBy("t.id", "t.username", "t.current_points").
		OrderBy("referrals DESC", "t.current_points DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []userReferrals
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get referral counts: %w", err)
	}

	out := make([]*model.LeaderboardEntry, len(rows))
	for i, row := range rows {
		out[i] = &model.LeaderboardEntry{
			Username:  row.Username,
			Points:    row.Points,
			Referrals: row.Referrals,
			Rank:      i + 1,
		}
	}
	return out, nil
}
