package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"bounty_hunter/internal/model"
	"bounty_hunter/internal/referral"

	"github.com/google/uuid"
)

var (
	ErrIdentityResolution = errors.New("identity resolution failed")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidUsername    = errors.New("username must be 3 to 32 letters, digits or underscores")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUsernameLocked     = errors.New("username can only be changed once")
	ErrInvalidReferral    = errors.New("invalid referral link")

	ErrConnectionNotFound = errors.New("social connection not found")
	ErrTelegramAuth       = errors.New("telegram authentication failed")

	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskInactive       = errors.New("task is not active")
	ErrInvalidTask        = errors.New("invalid task")
	ErrConnectionRequired = errors.New("task requires a linked account")
	ErrTaskBusy           = errors.New("task status changed, retry")
)

type Service struct {
	*IdentityService
	*SocialService
	*XConnectService
	*TaskService
	*LeaderboardService
}

func NewService(
	identity *IdentityService,
	social *SocialService,
	xconnect *XConnectService,
	tasks *TaskService,
	leaderboard *LeaderboardService,
) *Service {
	return &Service{
		IdentityService:    identity,
		SocialService:      social,
		XConnectService:    xconnect,
		TaskService:        tasks,
		LeaderboardService: leaderboard,
	}
}

// ConnectRequest is a wallet connection together with the caller's pending
// referral slot and what is known about its browser.
type ConnectRequest struct {
	Address   string
	Referrals referral.Slot
	ClientIP  string
	UserAgent string
}

type IdentityServiceI interface {
	Resolve(ctx context.Context, req ConnectRequest) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	Rename(ctx context.Context, id uuid.UUID, username string) (*model.User, error)
	LookupReferrer(ctx context.Context, token string) (*model.User, error)
}

type IdentityRepository interface {
	GetUserByWallet(ctx context.Context, wallet string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (*model.User, error)
	GetUserByReferralLink(ctx context.Context, link string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	RenameUser(ctx context.Context, id uuid.UUID, username string) error
}

// AttributionService is the referral bookkeeping that lives in the database.
type AttributionService interface {
	TrackReferralClick(ctx context.Context, click model.ReferralClick) error
	ProcessReferralFromLink(ctx context.Context, link string, newUserID uuid.UUID) error
}

type PointsLedger interface {
	IncrementUserPoints(ctx context.Context, userID uuid.UUID, points int) error
	UpdateTaskProgress(ctx context.Context, userID uuid.UUID) error
}

type SocialServiceI interface {
	UpsertConnection(ctx context.Context, in model.ConnectionInput) (*model.SocialConnection, error)
	Deactivate(ctx context.Context, userID, connectionID uuid.UUID) error
	GetByPlatform(ctx context.Context, userID uuid.UUID, platform model.Platform) (*model.SocialConnection, error)
	List(ctx context.Context, userID uuid.UUID) ([]*model.SocialConnection, error)
	LinkTelegramWidget(ctx context.Context, userID uuid.UUID, payload TelegramWidgetPayload) (*model.SocialConnection, error)
	LinkTelegramInitData(ctx context.Context, userID uuid.UUID, initData string) (*model.SocialConnection, error)
	StartTelegramLink(ctx context.Context, userID uuid.UUID) (*TelegramLink, error)
	AwaitTelegramLink(ctx context.Context, userID uuid.UUID, token string) (*model.SocialConnection, error)
}

type SocialRepository interface {
	UpsertConnection(ctx context.Context, in model.ConnectionInput) (*model.SocialConnection, error)
	DeactivateConnection(ctx context.Context, userID, connectionID uuid.UUID) error
	GetActiveConnection(ctx context.Context, userID uuid.UUID, platform model.Platform) (*model.SocialConnection, error)
	ListActiveConnections(ctx context.Context, userID uuid.UUID) ([]*model.SocialConnection, error)
	ConnectedPlatforms(ctx context.Context, userID uuid.UUID) ([]model.Platform, error)
	SetXConnectedAt(ctx context.Context, id uuid.UUID, at time.Time) error
}

type XConnectServiceI interface {
	Initiate(ctx context.Context, sessionID string, userID uuid.UUID) (string, error)
	Callback(ctx context.Context, sessionID string, query url.Values) (*model.SocialConnection, error)
}

type TaskServiceI interface {
	ListBountyTasks(ctx context.Context, userID uuid.UUID, platform model.TaskPlatform) ([]*model.BountyTask, error)
	Begin(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error)
	Verify(ctx context.Context, userID, taskID uuid.UUID) (model.TaskStatus, error)
	Approve(ctx context.Context, userID, taskID uuid.UUID, pass bool) (model.TaskStatus, error)
	ReviewQueue(ctx context.Context) ([]*model.UserTask, error)

	ListTasks(ctx context.Context) ([]*model.AdminTask, error)
	ListActiveTasks(ctx context.Context, platform model.TaskPlatform) ([]*model.AdminTask, error)
	CreateTask(ctx context.Context, task *model.AdminTask) (*model.AdminTask, error)
	UpdateTask(ctx context.Context, id uuid.UUID, upd model.TaskUpdate) (*model.AdminTask, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	PermanentlyDeleteTask(ctx context.Context, id uuid.UUID) error
	ToggleTask(ctx context.Context, id uuid.UUID, active bool) (*model.AdminTask, error)
}

type TaskRepository interface {
	ListAdminTasks(ctx context.Context) ([]*model.AdminTask, error)
	ListActiveTasks(ctx context.Context, platform model.TaskPlatform) ([]*model.AdminTask, error)
	GetAdminTask(ctx context.Context, id uuid.UUID) (*model.AdminTask, error)
	CreateAdminTask(ctx context.Context, task *model.AdminTask) (uuid.UUID, error)
	UpdateAdminTask(ctx context.Context, id uuid.UUID, upd model.TaskUpdate) error
	DeleteAdminTask(ctx context.Context, id uuid.UUID) error
	PermanentlyDeleteAdminTask(ctx context.Context, id uuid.UUID) error
	ListUserTasks(ctx context.Context, userID uuid.UUID) ([]*model.UserTask, error)
	ListUserTasksByStatus(ctx context.Context, status model.TaskStatus) ([]*model.UserTask, error)
	GetUserTask(ctx context.Context, userID, taskID uuid.UUID) (*model.UserTask, error)
	TransitionUserTask(ctx context.Context, userID, taskID uuid.UUID, from, to model.TaskStatus) error
	AddUserPoints(ctx context.Context, id uuid.UUID, points int) error
}

type LeaderboardServiceI interface {
	PointsLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
	ReferralLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
	UserStats(ctx context.Context, userID uuid.UUID) (*model.UserStats, error)
}

type LeaderboardRepository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
	GetTopReferrers(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
	GetTopUsersWithReferrals(ctx context.Context, limit int) ([]*model.LeaderboardEntry, error)
	CountUsersAbove(ctx context.Context, points int) (int, error)
	CountActiveReferrals(ctx context.Context, referrerID uuid.UUID) (int, error)
	GetReferrerUsername(ctx context.Context, userID uuid.UUID) (string, error)
}

// Notifier receives user-facing events. A nil Notifier is replaced with a
// no-op one by the services that take it.
type Notifier interface {
	Notify(userID uuid.UUID, event Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, Event) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
