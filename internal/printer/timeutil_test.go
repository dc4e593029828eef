package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/envup/internal/printer"
)

func TestTimeAgo(t *testing.T) {
	now := time.Now().UTC()

	tests := map[string]struct {
		time time.Time
		exp  string
	}{
		"one second":       {time: now.Add(-time.Second), exp: "1 second ago (UTC)"},
		"several seconds":  {time: now.Add(-30 * time.Second), exp: "30 seconds ago (UTC)"},
		"one minute":       {time: now.Add(-time.Minute - time.Second), exp: "1 minute ago (UTC)"},
		"several minutes":  {time: now.Add(-10 * time.Minute), exp: "10 minutes ago (UTC)"},
		"one hour":         {time: now.Add(-time.Hour - time.Minute), exp: "1 hour ago (UTC)"},
		"several hours":    {time: now.Add(-5 * time.Hour), exp: "5 hours ago (UTC)"},
		"one day":          {time: now.Add(-25 * time.Hour), exp: "1 day ago (UTC)"},
		"several days":     {time: now.Add(-80 * time.Hour), exp: "3 days ago (UTC)"},
		"future timestamp": {time: now.Add(time.Hour), exp: "in the future (UTC)"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.TimeAgo(test.time))
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "2026-08-30 15:04:05 UTC", printer.FormatTimestamp(ts))
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]struct {
		duration time.Duration
		exp      string
	}{
		"sub second keeps milliseconds": {duration: 250 * time.Millisecond, exp: "250ms"},
		"seconds round":                 {duration: 3*time.Second + 400*time.Millisecond, exp: "3s"},
		"minutes and seconds":           {duration: 83 * time.Second, exp: "1m23s"},
		"negative clamps to zero":       {duration: -time.Second, exp: "0s"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.FormatDuration(test.duration))
		})
	}
}
