package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBan_ExpiredAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ban  Ban
		want bool
	}{
		{name: "inactive", ban: Ban{Active: false, ExpiresAt: now.Add(-time.Hour)}, want: false},
		{name: "no expiry", ban: Ban{Active: true}, want: false},
		{name: "future", ban: Ban{Active: true, ExpiresAt: now.Add(time.Second)}, want: false},
		{name: "exactly now", ban: Ban{Active: true, ExpiresAt: now}, want: true},
		{name: "past", ban: Ban{Active: true, ExpiresAt: now.Add(-time.Minute)}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ban.ExpiredAt(now))
		})
	}
}
