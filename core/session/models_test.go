package session_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/smartclass/attendance/core/session"
)

func TestUpload_CapturedAt(t *testing.T) {
	received := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		timestamp string
		want      time.Time
	}{
		{name: "valid RFC3339", timestamp: "2026-03-10T09:15:00Z", want: time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)},
		{name: "with offset", timestamp: "2026-03-10T11:15:00+02:00", want: time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)},
		{name: "empty falls back", timestamp: "", want: received},
		{name: "garbage falls back", timestamp: "yesterday-ish", want: received},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := session.Upload{Timestamp: tt.timestamp}
			assert.True(t, up.CapturedAt(received).Equal(tt.want))
		})
	}
}

func TestNewSessionID(t *testing.T) {
	id1 := session.NewSessionID()
	id2 := session.NewSessionID()

	assert.True(t, strings.HasPrefix(id1, "session_"))
	assert.Len(t, id1, len("session_")+12)
	assert.NotEqual(t, id1, id2)
}

func TestSession_IsActive(t *testing.T) {
	assert.True(t, session.Session{Status: session.StatusActive}.IsActive())
	assert.False(t, session.Session{Status: session.StatusCompleted}.IsActive())
}
