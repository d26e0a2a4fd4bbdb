package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultLeaderboardLimit = 100
	MaxLeaderboardLimit     = 500
)

type LeaderboardService struct {
	repo LeaderboardRepository
	log  *zap.Logger
}

func NewLeaderboardService(repo LeaderboardRepository, log *zap.Logger) *LeaderboardService {
	return &LeaderboardService{
		repo: repo,
		log:  log,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

func (s *LeaderboardService) PointsLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	users, err := s.repo.GetTopUsers(ctx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	out := make([]*model.LeaderboardEntry, len(users))
	for i, u := range users {
		out[i] = &model.LeaderboardEntry{
			Username: u.Username,
			Points:   u.Points,
			Rank:     i + 1,
		}
	}
	return out, nil
}

// ReferralLeaderboard reads the ranking from the database function. When
// the function fails, referrals are counted for the top users by points.
func (s *LeaderboardService) ReferralLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error) {
	limit = clampLimit(limit)

	entries, err := s.repo.GetTopReferrers(ctx, limit)
	if err == nil {
		return entries, nil
	}
	s.log.Warn("get_top_referrers failed, counting referrals directly", zap.Error(err))

	entries, err = s.repo.GetTopUsersWithReferrals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral leaderboard: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Referrals > entries[j].Referrals
	})
	return entries, nil
}

func (s *LeaderboardService) UserStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	referrals, err := s.repo.CountActiveReferrals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count referrals: %w", err)
	}

	above, err := s.repo.CountUsersAbove(ctx, user.Points)
	if err != nil {
		return nil, fmt.Errorf("failed to get rank: %w", err)
	}

	referredBy, err := s.repo.GetReferrerUsername(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}

	return &model.UserStats{
		UserID:         userID,
		TotalReferrals: referrals,
		TotalPoints:    user.Points,
		GlobalRank:     above + 1,
		ReferredBy:     referredBy,
	}, nil
}
