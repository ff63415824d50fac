package plans

import (
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	domain "github.com/ByMatthewNeal/Arkline-sub011/internal/domain/plans"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/infra/stripeclient"

	"github.com/gin-gonic/gin"
)

// Processor is swapped for a fake in tests. Set to the live client in routes.
var Processor stripeclient.Processor

// SyncPlansFromStripe pulls the active recurring prices and keys the local
// catalog by billing interval. Prices on intervals the app does not sell are
// skipped and reported, not erred.
func SyncPlansFromStripe(c *gin.Context) {
	prices, err := Processor.ListRecurringPrices()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Stripe prices", "details": err.Error()})
		return
	}

	synced := 0
	skipped := 0

	for _, p := range prices {
		if p == nil || !p.Active || p.Recurring == nil {
			skipped++
			continue
		}
		if p.Metadata != nil && p.Metadata["visible"] == "false" {
			skipped++
			continue
		}

		key, err := stripeclient.PlanFromInterval(p.Recurring.Interval)
		if err != nil {
			skipped++
			continue
		}

		name := string(key)
		if p.Product != nil && p.Product.Name != "" {
			name = p.Product.Name
		}
		amount := float64(p.UnitAmount) / 100.0

		var existing domain.Plan
		err = database.DB.Where("key = ?", key).First(&existing).Error
		if err != nil {
			plan := domain.Plan{
				Key:           key,
				Name:          name,
				StripePriceID: p.ID,
				Interval:      string(p.Recurring.Interval),
				UnitAmount:    amount,
			}
			if err := database.DB.Create(&plan).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plan", "details": err.Error()})
				return
			}
		} else {
			existing.Name = name
			existing.StripePriceID = p.ID
			existing.Interval = string(p.Recurring.Interval)
			existing.UnitAmount = amount
			if err := database.DB.Save(&existing).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan", "details": err.Error()})
				return
			}
		}
		synced++
	}

	c.JSON(http.StatusOK, gin.H{"synced": synced, "skipped": skipped})
}

// ListPlans exposes the catalog to callers that need price ids.
func ListPlans(c *gin.Context) {
	var plansList []domain.Plan
	if err := database.DB.Order("unit_amount ASC").Find(&plansList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	c.JSON(http.StatusOK, plansList)
}
