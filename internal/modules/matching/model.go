// README: Clock-of-day window used to select rides for bulk dispatch.
package matching

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimeRange = errors.New("invalid time range, expected HH:MM-HH:MM")

// TimeRange is an inclusive HH:MM interval in the platform's local zone.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (tr TimeRange) String() string {
	return tr.Start + "-" + tr.End
}

// Contains compares zero-padded HH:MM strings, so lexical order is clock order.
func (tr TimeRange) Contains(hhmm string) bool {
	return tr.Start <= hhmm && hhmm <= tr.End
}

// ParseTimeRange reads "HH:MM-HH:MM". Single-digit hours are padded ("9:05" becomes "09:05").
func ParseTimeRange(s string) (TimeRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, s)
	}
	return TimeRange{Start: start, End: end}, nil
}

func parseClock(s string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}
