package domain

import (
	"fmt"
	"time"
)

// Window is the length of a usage accounting period.
type Window string

const (
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

func (w Window) Valid() bool {
	switch w {
	case WindowDay, WindowWeek, WindowMonth:
		return true
	default:
		return false
	}
}

func (w Window) Label() string {
	switch w {
	case WindowDay:
		return "24h"
	case WindowWeek:
		return "7d"
	case WindowMonth:
		return "30d"
	default:
		return string(w)
	}
}

// PeriodKey returns the period identifier containing t, in UTC.
func (w Window) PeriodKey(t time.Time) string {
	t = t.UTC()
	switch w {
	case WindowDay:
		return t.Format("2006-01-02")
	case WindowWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return t.Format("2006-01")
	}
}

// NextBoundary returns the start of the period following the one containing t,
// in UTC.
func (w Window) NextBoundary(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch w {
	case WindowDay:
		return day.AddDate(0, 0, 1)
	case WindowWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, 7-offset)
	default:
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	}
}

type DenyReason string

const (
	DenyReasonNone              DenyReason = ""
	DenyReasonQuotaExceeded     DenyReason = "quota-exceeded"
	DenyReasonQuotaDisabled     DenyReason = "quota-disabled"
	DenyReasonLedgerUnavailable DenyReason = "ledger-unavailable"
)

// AdmissionDecision is the outcome of the pre-call quota check. A denial is
// an expected result, not an error.
type AdmissionDecision struct {
	AccountID AccountID
	PeriodKey string
	Allowed   bool
	Remaining int64
	Reason    DenyReason
}

type TurnState string

const (
	TurnStatePending  TurnState = "pending"
	TurnStateAdmitted TurnState = "admitted"
	TurnStateRecorded TurnState = "recorded"
	TurnStateDenied   TurnState = "denied"
)
