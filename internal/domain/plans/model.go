package plans

import (
	"errors"

	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/subscriptions"

	"gorm.io/gorm"
)

var ErrPlanNotFound = errors.New("plan not found")

// Plan is the local catalog row for one recurring Stripe price. Keyed by the
// billing interval: the app sells exactly one monthly and one annual price.
type Plan struct {
	ID            uint               `gorm:"primaryKey"`
	Key           subscriptions.Plan `gorm:"type:varchar(20);not null;uniqueIndex:idx_plans_key"`
	Name          string
	StripePriceID string `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_plans_stripe_price_id"`
	Interval      string
	UnitAmount    float64 `gorm:"column:unit_amount"`
}

// ByKey resolves the catalog row for a plan key, used by change-plan to find
// the target price id and by metrics for unit amounts.
func ByKey(db *gorm.DB, key subscriptions.Plan) (*Plan, error) {
	var p Plan
	if err := db.Where("key = ?", key).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}
