package timeutil

import (
	"testing"
	"time"

	"github.com/marmos91/cipherdrop/pkg/state/models"
	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want string
	}{
		{name: "negative", d: -time.Second, want: "-"},
		{name: "sub-second", d: 500 * time.Millisecond, want: "now"},
		{name: "seconds", d: 42 * time.Second, want: "42s"},
		{name: "minutes", d: 5*time.Minute + 30*time.Second, want: "5m"},
		{name: "hours", d: 3*time.Hour + 10*time.Minute, want: "3h"},
		{name: "days", d: 49 * time.Hour, want: "2d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.d))
		})
	}
}

func TestFormatLastSeen(t *testing.T) {
	now := time.Now()
	stamp := models.Timestamp(now.Add(-2 * time.Minute))
	assert.Equal(t, "2m", formatLastSeenAt(stamp, now))
}

func TestFormatLastSeen_Unparseable(t *testing.T) {
	assert.Equal(t, "-", FormatLastSeen("not a timestamp"))
	assert.Equal(t, "-", FormatLastSeen(""))
}
