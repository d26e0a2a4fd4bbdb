package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/referral"
	"bounty_hunter/internal/repository"
	"bounty_hunter/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type IdentityService struct {
	repo        IdentityRepository
	attribution AttributionService
	publicURL   string
	log         *zap.Logger
	group       singleflight.Group
	now         func() time.Time
}

func NewIdentityService(repo IdentityRepository, attribution AttributionService, publicURL string, log *zap.Logger) *IdentityService {
	return &IdentityService{
		repo:        repo,
		attribution: attribution,
		publicURL:   strings.TrimRight(publicURL, "/"),
		log:         log,
		now:         time.Now,
	}
}

const (
	// resolveTimeout bounds the shared lookup-or-create sequence, which runs
	// detached from any single caller.
	resolveTimeout = 30 * time.Second
	// createAttempts bounds retries after a generated referral code or
	// username collides with an existing row.
	createAttempts = 3
)

type resolved struct {
	user    *model.User
	created bool
	// claimed is set by the first caller that attributes a referral to user.
	claimed atomic.Bool
}

// Resolve returns the user owning req.Address, creating it on first
// connection. Concurrent calls for the same address share one
// lookup-or-create sequence; each caller waits on its own ctx. When the user
// is new, the first caller holding a pending referral token has it attributed
// and every caller's token is consumed.
func (s *IdentityService) Resolve(ctx context.Context, req ConnectRequest) (*model.User, error) {
	address, err := auth.NormalizeAddress(req.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIdentityResolution, err)
	}

	ch := s.group.DoChan(address, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return s.resolve(shared, address)
	})

	var res *resolved
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrIdentityResolution, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res = r.Val.(*resolved)
	}

	if res.created {
		s.attribute(ctx, res, req)
	}
	return res.user, nil
}

func (s *IdentityService) resolve(ctx context.Context, address string) (*resolved, error) {
	user, err := s.repo.GetUserByWallet(ctx, address)
	if err == nil {
		return &resolved{user: user}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: failed to get user by wallet: %w", ErrIdentityResolution, err)
	}

	for attempt := 1; ; attempt++ {
		user = s.newUser(address)
		err = s.repo.CreateUser(ctx, user)
		switch {
		case err == nil:
			usersCreated.Inc()
			s.log.Info("user created", zap.String("wallet", address), zap.String("user_id", user.ID.String()))
			return &resolved{user: user, created: true}, nil
		case errors.Is(err, repository.ErrWalletTaken):
			s.log.Info("user created concurrently, refetching", zap.String("wallet", address))
			user, err = s.repo.GetUserByWallet(ctx, address)
			if err != nil {
				return nil, fmt.Errorf("%w: user missing after concurrent create: %w", ErrIdentityResolution, err)
			}
			return &resolved{user: user, created: true}, nil
		case errors.Is(err, repository.ErrUniqueViolation) && attempt < createAttempts:
			s.log.Warn("generated user fields collided, retrying",
				zap.String("wallet", address),
				zap.String("referral_code", user.ReferralCode),
				zap.Int("attempt", attempt),
			)
		default:
			return nil, fmt.Errorf("%w: failed to create user: %w", ErrIdentityResolution, err)
		}
	}
}

func (s *IdentityService) newUser(address string) *model.User {
	now := s.now()
	id := uuid.New()
	code := GenerateReferralCode(id, now)
	return &model.User{
		ID:                  id,
		WalletAddress:       address,
		Username:            GenerateUsername(),
		ReferralCode:        code,
		ReferralLink:        referral.LinkFor(code, s.publicURL),
		ConnectionTimestamp: now,
	}
}

// attribute reports the pending referral of req for the new user in res.
// The token is consumed before anything else, so it is gone whatever the
// outcome. Only one caller per created user reaches the backend; failures are
// logged and never fail the connection.
func (s *IdentityService) attribute(ctx context.Context, res *resolved, req ConnectRequest) {
	if req.Referrals == nil {
		return
	}
	token, ok := referral.Take(req.Referrals)
	if !ok || !res.claimed.CompareAndSwap(false, true) {
		return
	}

	userID := res.user.ID
	link := referral.LinkFor(token, s.publicURL)
	log := s.log.With(zap.String("user_id", userID.String()), zap.String("referral_link", link))

	err := s.attribution.TrackReferralClick(ctx, model.ReferralClick{
		Link:      link,
		IPAddress: req.ClientIP,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		log.Warn("failed to track referral click", zap.Error(err))
	}

	if err := s.attribution.ProcessReferralFromLink(ctx, link, userID); err != nil {
		log.Warn("failed to process referral", zap.Error(err))
		referralAttributions.WithLabelValues("failed").Inc()
		return
	}
	referralAttributions.WithLabelValues("processed").Inc()
	log.Info("referral processed")
}

func (s *IdentityService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Rename replaces the generated username. It is allowed once.
func (s *IdentityService) Rename(ctx context.Context, id uuid.UUID, username string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if !ValidUsername(username) {
		return nil, ErrInvalidUsername
	}

	err := s.repo.RenameUser(ctx, id, username)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrUsernameLocked):
		return nil, ErrUsernameLocked
	case errors.Is(err, repository.ErrUniqueViolation):
		return nil, ErrUsernameTaken
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrUserNotFound
	default:
		return nil, fmt.Errorf("failed to rename user: %w", err)
	}

	return s.GetUser(ctx, id)
}

// LookupReferrer finds the owner of a referral token, by code first and then
// by full link.
func (s *IdentityService) LookupReferrer(ctx context.Context, token string) (*model.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidReferral
	}

	user, err := s.repo.GetUserByReferralCode(ctx, token)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}

	user, err = s.repo.GetUserByReferralLink(ctx, referral.LinkFor(token, s.publicURL))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidReferral
		}
		return nil, fmt.Errorf("failed to get user by referral link: %w", err)
	}
	return user, nil
}
