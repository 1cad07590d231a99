package stats

import (
	"math"
	"strings"
	"time"

	"github.com/twh-ops/leadportal/internal/portal/domain/lead"
)

// UnknownAgent groups records whose agent field is blank.
const UnknownAgent = "Unknown"

// Result is the aggregate figure set for one category.
type Result struct {
	Today            float64            `json:"today"`
	Night            float64            `json:"night"`
	Pending          int                `json:"pending"`
	PendingAmount    float64            `json:"pending_amount"`
	DeclinedAmount   float64            `json:"declined_amount"`
	ChargebackAmount float64            `json:"chargeback_amount"`
	Breakdown        map[string]float64 `json:"breakdown"`
}

func zeroResult() Result {
	return Result{Breakdown: map[string]float64{}}
}

// Compute aggregates a category's records at the given instant. It never
// fails: malformed records are skipped per field and an empty input yields
// the zero result. Timestamps are evaluated in now's location.
func Compute(cat lead.Category, records []lead.Lead, now time.Time) Result {
	res := zeroResult()
	if len(records) == 0 {
		return res
	}

	night := ShiftWindow(cat.Shift, now)
	today := TodayWindow(now)

	var nightTotal, todayTotal, pendingTotal, declinedTotal, chargebackTotal float64
	breakdown := map[string]float64{}

	for _, rec := range records {
		amount := rec.ChargeAmount
		status := lead.NormalizeStatus(rec.Status)

		switch status {
		case lead.StatusPending:
			res.Pending++
			pendingTotal += amount
		case lead.StatusDeclined:
			declinedTotal += amount
		default:
			// Chargebacks carry free-text suffixes ("Chargeback Dispute");
			// match on the prefix.
			if strings.HasPrefix(status, lead.StatusChargeback) {
				chargebackTotal += amount
			}
		}

		if !cat.CountAllStatuses && status != lead.StatusCharged {
			continue
		}

		ts, ok := recordTime(rec, now.Location())
		if !ok {
			continue
		}

		if night.Contains(ts) {
			nightTotal += amount
			agent := strings.TrimSpace(rec.Agent)
			if agent == "" {
				agent = UnknownAgent
			}
			breakdown[agent] += amount
		}
		if today.Contains(ts) {
			todayTotal += amount
		}
	}

	res.Night = round2(nightTotal)
	res.Today = round2(todayTotal)
	res.PendingAmount = round2(pendingTotal)
	res.DeclinedAmount = round2(declinedTotal)
	res.ChargebackAmount = round2(chargebackTotal)
	for agent, sum := range breakdown {
		res.Breakdown[agent] = round2(sum)
	}
	return res
}

// recordTime resolves a record's creation instant, falling back to the
// stored timestamp string when the parsed field is unset. Records with no
// parsable timestamp are excluded from window aggregation.
func recordTime(rec lead.Lead, loc *time.Location) (time.Time, bool) {
	if !rec.CreatedAt.IsZero() {
		return rec.CreatedAt.In(loc), true
	}
	stamp := strings.TrimSpace(rec.Timestamp)
	if stamp == "" {
		return time.Time{}, false
	}
	if ts, err := time.ParseInLocation(lead.TimestampLayout, stamp, loc); err == nil {
		return ts, true
	}
	return time.Time{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
