package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidTransition = errors.New("invalid task status transition")

type TaskPlatform string

const (
	TaskPlatformX        TaskPlatform = "x"
	TaskPlatformTelegram TaskPlatform = "telegram"
	TaskPlatformGeneral  TaskPlatform = "general"
)

type VerificationType string

const (
	VerificationManual VerificationType = "manual"
	VerificationAPI    VerificationType = "api"
	VerificationSocial VerificationType = "social"
)

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskVerifying  TaskStatus = "verifying"
	TaskCompleted  TaskStatus = "completed"
)

type TaskEvent string

const (
	EventBegin  TaskEvent = "begin"
	EventVerify TaskEvent = "verify"
	EventPass   TaskEvent = "pass"
	EventFail   TaskEvent = "fail"
)

var taskTransitions = map[TaskStatus]map[TaskEvent]TaskStatus{
	TaskNotStarted: {EventBegin: TaskInProgress},
	TaskInProgress: {EventVerify: TaskVerifying},
	TaskVerifying: {
		EventPass: TaskCompleted,
		EventFail: TaskInProgress,
	},
}

// Next returns the status reached from s on event e.
func (s TaskStatus) Next(e TaskEvent) (TaskStatus, error) {
	next, ok := taskTransitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}

func (p TaskPlatform) Valid() bool {
	switch p {
	case TaskPlatformX, TaskPlatformTelegram, TaskPlatformGeneral:
		return true
	}
	return false
}

func (v VerificationType) Valid() bool {
	switch v {
	case VerificationManual, VerificationAPI, VerificationSocial:
		return true
	}
	return false
}

// SocialPlatform maps a task platform to the account it is gated on.
func (p TaskPlatform) SocialPlatform() (Platform, bool) {
	switch p {
	case TaskPlatformX:
		return PlatformX, true
	case TaskPlatformTelegram:
		return PlatformTelegram, true
	}
	return "", false
}

type AdminTask struct {
	ID                 uuid.UUID
	Title              string
	Description        string
	Platform           TaskPlatform
	Points             int
	ActionURL          string
	VerificationType   VerificationType
	RequiresConnection bool
	IsActive           bool
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type TaskUpdate struct {
	Title              *string
	Description        *string
	Platform           *TaskPlatform
	Points             *int
	ActionURL          *string
	VerificationType   *VerificationType
	RequiresConnection *bool
	IsActive           *bool
}

type UserTask struct {
	UserID      uuid.UUID
	TaskID      uuid.UUID
	Status      TaskStatus
	StartedAt   *time.Time
	CompletedAt *time.Time
}

type BountyTask struct {
	Task   *AdminTask
	Status TaskStatus
}
