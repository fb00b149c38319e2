package calculator

import (
	"time"

	"github.com/mmynk/chitfund/internal/models"
)

// PenaltyDailyDivisor prorates the contribution over a flat 30-day month,
// whatever the actual month length.
const PenaltyDailyDivisor = 30

// PenaltyInput holds everything needed to price a late payment.
type PenaltyInput struct {
	DueDate         time.Time
	Window          models.PaymentWindow
	GracePeriodDays int
	Amount          float64
	ApprovedAt      time.Time
}

// Penalty is the outcome of CalculatePenalty.
type Penalty struct {
	LateDays int
	Amount   float64
}

// WindowEnd returns the last instant of the window's end day in the due month,
// in the due date's location. An end day past the month's length rolls over
// into the next month the same way time.Date normalizes it.
func WindowEnd(dueDate time.Time, window models.PaymentWindow) time.Time {
	return time.Date(dueDate.Year(), dueDate.Month(), window.EndDay, 23, 59, 59, int(999*time.Millisecond), dueDate.Location())
}

// GraceEnd returns the moment after which an approval is considered late.
func GraceEnd(dueDate time.Time, window models.PaymentWindow, graceDays int) time.Time {
	return WindowEnd(dueDate, window).AddDate(0, 0, graceDays)
}

// CalculatePenalty prices a payment approved at in.ApprovedAt.
//
// Lateness is measured from the approval, not from the submission:
//   - approved at or before the grace end: no penalty
//   - otherwise: lateDays = whole days past the grace end,
//     amount = in.Amount / 30 * lateDays
func CalculatePenalty(in PenaltyInput) Penalty {
	graceEnd := GraceEnd(in.DueDate, in.Window, in.GracePeriodDays)
	if !in.ApprovedAt.After(graceEnd) {
		return Penalty{}
	}

	lateDays := int(in.ApprovedAt.Sub(graceEnd) / (24 * time.Hour))
	return Penalty{
		LateDays: lateDays,
		Amount:   in.Amount / PenaltyDailyDivisor * float64(lateDays),
	}
}
