package metrics

import (
	"net/http"

	"github.com/ByMatthewNeal/Arkline-sub011/database"
	"github.com/ByMatthewNeal/Arkline-sub011/internal/domain/metrics"

	"github.com/gin-gonic/gin"
)

// GetMetrics recomputes MRR/ARR/churn over current state on every request.
func GetMetrics(c *gin.Context) {
	report, err := metrics.Compute(database.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute metrics"})
		return
	}
	c.JSON(http.StatusOK, report)
}
