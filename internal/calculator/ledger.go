package calculator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/chitfund/internal/models"
)

// StatusNotPaid marks a member ledger row for a cycle without any record.
const StatusNotPaid = "not_paid"

// LedgerRow is one member's payment in one cycle.
type LedgerRow struct {
	CycleID       string
	MonthIndex    int
	DueDate       time.Time
	MemberID      string
	Status        string // pending, paid, rejected or not_paid
	Amount        float64
	ProofRef      string
	PaidAt        *time.Time
	LateDays      int
	PenaltyAmount float64
	OnTime        bool
}

// MemberSummary folds a member's paid records into totals. Pending and
// rejected records appear in History but never in the sums.
type MemberSummary struct {
	MemberID           string
	TotalPaidCount     int
	OnTimeCount        int
	LateCount          int
	PendingCount       int
	TotalLateDays      int
	TotalContributed   float64
	TotalPenaltyAmount float64
	History            []LedgerRow
}

// CycleSummary is the payout status of one cycle with its payment rows.
type CycleSummary struct {
	CycleID         string
	MonthIndex      int
	DueDate         time.Time
	PayoutRecipient string
	PayoutExecuted  bool
	PayoutProofRef  string
	CollectedAmount float64
	Payments        []LedgerRow
}

// FundLedger is the settlement report of a fund.
type FundLedger struct {
	Members        []MemberSummary
	Cycles         []CycleSummary
	TotalCollected float64
	TotalPenalties float64
}

// Standing is a member's place in the performance ranking.
type Standing struct {
	Rank             int
	MemberID         string
	TotalLateDays    int
	PerformanceScore int
	OnTimeCount      int
}

// RoundMoney rounds an amount to two decimal places.
func RoundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// BuildFundLedger aggregates every cycle of a fund. memberIDs fixes the order
// of the member summaries; members that only appear in records follow in the
// order they are first seen. The result depends on its inputs alone.
func BuildFundLedger(memberIDs []string, cycles []models.Cycle) FundLedger {
	sorted := sortedCycles(cycles)

	order := make([]string, 0, len(memberIDs))
	acc := make(map[string]*memberAccumulator)
	track := func(id string) *memberAccumulator {
		if a, ok := acc[id]; ok {
			return a
		}
		a := &memberAccumulator{summary: MemberSummary{MemberID: id}}
		acc[id] = a
		order = append(order, id)
		return a
	}
	for _, id := range memberIDs {
		track(id)
	}

	var ledger FundLedger
	totalCollected := decimal.Zero
	totalPenalties := decimal.Zero
	for _, c := range sorted {
		cs := CycleSummary{
			CycleID:         c.ID,
			MonthIndex:      c.MonthIndex,
			DueDate:         c.DueDate,
			PayoutRecipient: c.PayoutRecipient,
			PayoutExecuted:  c.PayoutExecuted,
			PayoutProofRef:  c.PayoutProofRef,
		}
		collected := decimal.Zero
		for _, rec := range c.Payments {
			row := recordRow(c, rec)
			cs.Payments = append(cs.Payments, row)
			track(rec.MemberID).add(row)
			if rec.Status == models.PaymentPaid {
				collected = collected.Add(decimal.NewFromFloat(rec.Amount))
				totalPenalties = totalPenalties.Add(decimal.NewFromFloat(rec.PenaltyAmount))
			}
		}
		cs.CollectedAmount = collected.Round(2).InexactFloat64()
		totalCollected = totalCollected.Add(collected)
		ledger.Cycles = append(ledger.Cycles, cs)
	}

	for _, id := range order {
		ledger.Members = append(ledger.Members, acc[id].finish())
	}
	ledger.TotalCollected = totalCollected.Round(2).InexactFloat64()
	ledger.TotalPenalties = totalPenalties.Round(2).InexactFloat64()
	return ledger
}

// BuildMemberLedger returns one member's history with a row for every cycle.
// Cycles without a record produce a not_paid row.
func BuildMemberLedger(memberID string, cycles []models.Cycle) MemberSummary {
	a := &memberAccumulator{summary: MemberSummary{MemberID: memberID}}
	for _, c := range sortedCycles(cycles) {
		rec, ok := c.FindPaymentRecord(memberID)
		if !ok {
			a.add(LedgerRow{
				CycleID:    c.ID,
				MonthIndex: c.MonthIndex,
				DueDate:    c.DueDate,
				MemberID:   memberID,
				Status:     StatusNotPaid,
			})
			continue
		}
		a.add(recordRow(c, *rec))
	}
	return a.finish()
}

// RankMembers orders members by total late days ascending, then performance
// score descending, then on-time count descending. Ties keep the input order.
func RankMembers(summaries []MemberSummary, streaks map[string]Streak) []Standing {
	standings := make([]Standing, 0, len(summaries))
	for _, s := range summaries {
		standings = append(standings, Standing{
			MemberID:         s.MemberID,
			TotalLateDays:    s.TotalLateDays,
			PerformanceScore: streaks[s.MemberID].PerformanceScore,
			OnTimeCount:      s.OnTimeCount,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.TotalLateDays != b.TotalLateDays {
			return a.TotalLateDays < b.TotalLateDays
		}
		if a.PerformanceScore != b.PerformanceScore {
			return a.PerformanceScore > b.PerformanceScore
		}
		return a.OnTimeCount > b.OnTimeCount
	})

	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

func recordRow(c models.Cycle, rec models.PaymentRecord) LedgerRow {
	return LedgerRow{
		CycleID:       c.ID,
		MonthIndex:    c.MonthIndex,
		DueDate:       c.DueDate,
		MemberID:      rec.MemberID,
		Status:        rec.Status.String(),
		Amount:        rec.Amount,
		ProofRef:      rec.ProofRef,
		PaidAt:        rec.PaidAt,
		LateDays:      rec.PenaltyDays,
		PenaltyAmount: rec.PenaltyAmount,
		OnTime:        rec.OnTime(),
	}
}

type memberAccumulator struct {
	summary     MemberSummary
	contributed decimal.Decimal
	penalties   decimal.Decimal
}

func (a *memberAccumulator) add(row LedgerRow) {
	a.summary.History = append(a.summary.History, row)
	switch row.Status {
	case models.PaymentPaid.String():
		a.summary.TotalPaidCount++
		if row.OnTime {
			a.summary.OnTimeCount++
		} else {
			a.summary.LateCount++
		}
		a.summary.TotalLateDays += row.LateDays
		a.contributed = a.contributed.Add(decimal.NewFromFloat(row.Amount))
		a.penalties = a.penalties.Add(decimal.NewFromFloat(row.PenaltyAmount))
	case models.PaymentPending.String():
		a.summary.PendingCount++
	}
}

func (a *memberAccumulator) finish() MemberSummary {
	a.summary.TotalContributed = a.contributed.Round(2).InexactFloat64()
	a.summary.TotalPenaltyAmount = a.penalties.Round(2).InexactFloat64()
	return a.summary
}
