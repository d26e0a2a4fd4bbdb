package repository

import (
	"context"
	"fmt"

	"bounty_hunter/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Stored procedures owned by the database. They are called with named
// notation so argument order never has to match the function signature.
const (
	rpcIncrementUserPoints     = "increment_user_points(user_id_param => ?, points_to_add => ?)"
	rpcProcessReferralFromLink = "process_referral_from_link(referral_link_param => ?, new_user_id_param => ?)"
	rpcTrackReferralClick      = "track_referral_click(referral_link_param => ?, ip_address_param => ?, user_agent_param => ?)"
	rpcUpdateTaskProgress      = "update_task_progress(user_id_param => ?)"
)

type topReferrer struct {
	Username  string `db:"username"`
	Points    int    `db:"points"`
	Referrals int    `db:"referrals"`
	Rank      int    `db:"rank"`
}

func (r *Repository) call(ctx context.Context, fn string, args ...interface{}) error {
	query, sqlArgs, err := squirrel.
		Select().
		Column(squirrel.Expr(fn, args...)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build rpc query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, sqlArgs...); err != nil {
		return err
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (r *Repository) IncrementUserPoints(ctx context.Context, userID uuid.UUID, points int) error {
	if err := r.call(ctx, rpcIncrementUserPoints, userID, points); err != nil {
		return fmt.Errorf("increment_user_points: %w", err)
	}
	return nil
}

func (r *Repository) ProcessReferralFromLink(ctx context.Context, link string, newUserID uuid.UUID) error {
	if err := r.call(ctx, rpcProcessReferralFromLink, link, newUserID); err != nil {
		return fmt.Errorf("process_referral_from_link: %w", err)
	}
	return nil
}

func (r *Repository) TrackReferralClick(ctx context.Context, click model.ReferralClick) error {
	err := r.call(ctx, rpcTrackReferralClick,
		click.Link,
		nullable(click.IPAddress),
		nullable(click.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("track_referral_click: %w", err)
	}
	return nil
}

func (r *Repository) UpdateTaskProgress(ctx context.Context, userID uuid.UUID) error {
	if err := r.call(ctx, rpcUpdateTaskProgress, userID); err != nil {
		return fmt.Errorf("update_task_progress: %w", err)
	}
	return nil
}

// GetTopReferrers reads the referral leaderboard from the database function.
// Columns the function does not return are left zero; a missing rank is
// filled from the row position.
func (r *Repository) GetTopReferrers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	query := "SELECT * FROM get_top_referrers(limit_count => $1)"

	var rows []topReferrer
	if err := r.db.Unsafe().SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("get_top_referrers: %w", err)
	}

	out := make([]*model.LeaderboardEntry, len(rows))
	for i, row := range rows {
		rank := row.Rank
		if rank == 0 {
			rank = i + 1
		}
		out[i] = &model.LeaderboardEntry{
			Username:  row.Username,
			Points:    row.Points,
			Referrals: row.Referrals,
			Rank:      rank,
		}
	}
	return out, nil
}
