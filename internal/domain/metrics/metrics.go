package metrics

import (
	"errors"
	"time"

	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/plans"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"gorm.io/gorm"
)

// Report is recomputed from current state on every call. Churn is the
// trailing-30-day approximation, not a cohort analysis; callers should treat
// it as an operational signal rather than an exact figure.
type Report struct {
	MRR            float64 `json:"mrr"`
	ARR            float64 `json:"arr"`
	ChurnRate      float64 `json:"churn_rate"`
	ActiveCount    int64   `json:"active_count"`
	CanceledLast30 int64   `json:"canceled_last_30"`
}

// Compute derives MRR/ARR/churn over the subscriptions table, pricing each
// active subscription through the plan catalog. Annual revenue is spread over
// twelve months.
func Compute(db *gorm.DB) (*Report, error) {
	var counts []struct {
		Plan  subscriptions.Plan
		Count int64
	}
	err := db.Model(&subscriptions.Subscription{}).
		Select("plan, COUNT(*) as count").
		Where("status = ?", subscriptions.StatusActive).
		Group("plan").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	report := Report{}
	for _, c := range counts {
		report.ActiveCount += c.Count

		unit, err := unitAmount(db, c.Plan)
		if err != nil {
			return nil, err
		}
		switch c.Plan {
		case subscriptions.PlanAnnual:
			report.MRR += float64(c.Count) * unit / 12
		default:
			report.MRR += float64(c.Count) * unit
		}
	}
	report.ARR = report.MRR * 12

	cutoff := time.Now().AddDate(0, 0, -30)
	err = db.Model(&subscriptions.Subscription{}).
		Where("status = ? AND canceled_at >= ?", subscriptions.StatusCanceled, cutoff).
		Count(&report.CanceledLast30).Error
	if err != nil {
		return nil, err
	}

	if denom := report.ActiveCount + report.CanceledLast30; denom > 0 {
		report.ChurnRate = float64(report.CanceledLast30) / float64(denom)
	}

	return &report, nil
}

// unitAmount prices a plan from the catalog. A plan missing from the catalog
// contributes zero rather than failing the whole report.
func unitAmount(db *gorm.DB, key subscriptions.Plan) (float64, error) {
	p, err := plans.ByKey(db, key)
	if err != nil {
		if errors.Is(err, plans.ErrPlanNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return p.UnitAmount, nil
}
