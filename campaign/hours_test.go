package campaign_test

import (
	"testing"
	"time"

	"github.com/isethius/Autowebsites-sub001/campaign"
)

func at(hour int) time.Time {
	return time.Date(2025, 6, 1, hour, 30, 0, 0, time.UTC)
}

func TestHours_Within(t *testing.T) {
	tests := []struct {
		name  string
		hours campaign.Hours
		hour  int
		want  bool
	}{
		// Overnight window 22:00-05:59.
		{"overnight inside late", campaign.Hours{Start: 22, End: 6}, 23, true},
		{"overnight inside early", campaign.Hours{Start: 22, End: 6}, 3, true},
		{"overnight at start", campaign.Hours{Start: 22, End: 6}, 22, true},
		{"overnight last hour", campaign.Hours{Start: 22, End: 6}, 5, true},
		{"overnight at end", campaign.Hours{Start: 22, End: 6}, 6, false},
		{"overnight midday", campaign.Hours{Start: 22, End: 6}, 10, false},
		{"overnight just before start", campaign.Hours{Start: 22, End: 6}, 21, false},

		// Same-day window 09:00-16:59.
		{"daytime inside", campaign.Hours{Start: 9, End: 17}, 12, true},
		{"daytime at start", campaign.Hours{Start: 9, End: 17}, 9, true},
		{"daytime at end", campaign.Hours{Start: 9, End: 17}, 17, false},
		{"daytime before", campaign.Hours{Start: 9, End: 17}, 8, false},
		{"daytime after", campaign.Hours{Start: 9, End: 17}, 22, false},

		// Equal start and end is an empty window.
		{"empty window", campaign.Hours{Start: 0, End: 0}, 0, false},
		{"empty window noon", campaign.Hours{Start: 12, End: 12}, 12, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hours.Within(at(tt.hour)); got != tt.want {
				t.Errorf("Hours{%d,%d}.Within(hour=%d) = %v, want %v",
					tt.hours.Start, tt.hours.End, tt.hour, got, tt.want)
			}
		})
	}
}
