// Package schedule implements the daily time window attached to a bot
// slot. A window is a pair of minutes-of-day in server-local time;
// evaluation is re-derived from the wall clock on every check, so there
// is no stored "next transition" state to drift.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidFormat means the text did not match hh:mm-hh:mm.
	ErrInvalidFormat = errors.New("invalid schedule format")
	// ErrOutOfRange means hours or minutes fell outside 00:00-23:59.
	ErrOutOfRange = errors.New("schedule out of range")
)

// Off is the literal token that clears a slot's schedule.
const Off = "off"

var rangeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})$`)

// Window is a daily recurring availability window. Start and End are
// minutes of day (0..1439). Start == End means the full day; Start > End
// wraps past midnight.
type Window struct {
	Start int
	End   int
	Raw   string
}

// Parse parses "hh:mm-hh:mm" into a Window. The Raw field is normalized
// to zero-padded form. Parse does not accept the Off token; callers
// check for it first.
func Parse(text string) (Window, error) {
	m := rangeRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Window{}, ErrInvalidFormat
	}
	sh, _ := strconv.Atoi(m[1])
	sm, _ := strconv.Atoi(m[2])
	eh, _ := strconv.Atoi(m[3])
	em, _ := strconv.Atoi(m[4])
	if sh > 23 || eh > 23 || sm > 59 || em > 59 {
		return Window{}, ErrOutOfRange
	}
	return Window{
		Start: sh*60 + sm,
		End:   eh*60 + em,
		Raw:   fmt.Sprintf("%02d:%02d-%02d:%02d", sh, sm, eh, em),
	}, nil
}

// Active reports whether minuteOfDay falls inside the window.
// Start == End is always active; Start < End is half-open forward
// [Start, End); Start > End is the half-open overnight wrap.
func (w Window) Active(minuteOfDay int) bool {
	switch {
	case w.Start == w.End:
		return true
	case w.Start < w.End:
		return minuteOfDay >= w.Start && minuteOfDay < w.End
	default:
		return minuteOfDay >= w.Start || minuteOfDay < w.End
	}
}

// ActiveAt evaluates the window against a wall-clock instant in its
// local time zone.
func (w Window) ActiveAt(t time.Time) bool {
	return w.Active(t.Hour()*60 + t.Minute())
}

func (w Window) String() string { return w.Raw }
