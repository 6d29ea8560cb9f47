package campaign

import "time"

// Hours is a time-of-day window in whole hours (0-23). Start > End means
// the window wraps past midnight, e.g. {22, 6} covers 22:00-05:59.
type Hours struct {
	Start int `json:"start" validate:"min=0,max=23"`
	End   int `json:"end" validate:"min=0,max=23"`
}

// Within reports whether t falls inside the window. The comparison uses
// t's hour in its own location; callers pass UTC times for UTC windows.
func (h Hours) Within(t time.Time) bool {
	hour := t.Hour()
	if h.Start > h.End {
		// Overnight wraparound.
		return hour >= h.Start || hour < h.End
	}
	return hour >= h.Start && hour < h.End
}
