package guide

import (
	"fmt"
	"time"
)

// NoCorrelationError means a channel could not be linked to any guide
// channel by id, exact name, or fuzzy match.
type NoCorrelationError struct {
	Channel string
}

func (e *NoCorrelationError) Error() string {
	return fmt.Sprintf("channel %q: no guide correlation", e.Channel)
}

// NoDataAnnotation is appended to a channel row when no current program is
// known for it.
const NoDataAnnotation = " - No Current EPG Data Available"

const clockLayout = "03:04 PM"

// Resolve picks the current and next program from a channel's guide
// entries. programs must be sorted by start time. The current program is
// the first whose interval contains now; next is the entry after it. When
// nothing contains now, next is the first program starting later and
// current is nil. All interval checks use now as given (callers pass local
// time).
func Resolve(programs []Program, now time.Time) (current, next *Program) {
	for i := range programs {
		p := &programs[i]
		if !p.Start.After(now) && p.Stop.After(now) {
			current = p
			if i+1 < len(programs) {
				next = &programs[i+1]
			}
			return current, next
		}
	}
	for i := range programs {
		if programs[i].Start.After(now) {
			return nil, &programs[i]
		}
	}
	return nil, nil
}

// Displayed picks the program a channel row shows: the one on air, or the
// first upcoming one when nothing contains now.
func Displayed(current, next *Program) *Program {
	if current != nil {
		return current
	}
	return next
}

// Annotate renders a channel row with a program:
// "Name - Title (03:00 PM - 04:00 PM)". Times print in local time.
// A nil program yields the no-data annotation.
func Annotate(channelName string, p *Program) string {
	if p == nil {
		return channelName + NoDataAnnotation
	}
	return fmt.Sprintf("%s - %s (%s - %s)",
		channelName,
		p.Title,
		p.Start.Local().Format(clockLayout),
		p.Stop.Local().Format(clockLayout))
}
