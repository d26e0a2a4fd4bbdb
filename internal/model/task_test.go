package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus_Next(t *testing.T) {
	tests := []struct {
		name    string
		from    TaskStatus
		event   TaskEvent
		want    TaskStatus
		wantErr bool
	}{
		{name: "begin", from: TaskNotStarted, event: EventBegin, want: TaskInProgress},
		{name: "verify", from: TaskInProgress, event: EventVerify, want: TaskVerifying},
		{name: "pass", from: TaskVerifying, event: EventPass, want: TaskCompleted},
		{name: "fail", from: TaskVerifying, event: EventFail, want: TaskInProgress},
		{name: "verify before begin", from: TaskNotStarted, event: EventVerify, wantErr: true},
		{name: "begin twice", from: TaskInProgress, event: EventBegin, wantErr: true},
		{name: "completed is terminal", from: TaskCompleted, event: EventBegin, wantErr: true},
		{name: "pass without verifying", from: TaskInProgress, event: EventPass, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.from.Next(tt.event)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, got)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("x")
	assert.NoError(t, err)
	assert.Equal(t, PlatformX, p)

	_, err = ParsePlatform("discord")
	assert.Error(t, err)
}
