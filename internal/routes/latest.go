package routes

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rm-hull/gas-prices-ingest/internal"
	"github.com/rm-hull/gas-prices-ingest/internal/models"
	"github.com/rm-hull/gas-prices-ingest/internal/stats"
)

const maxStationIds = 100

func LatestPrices(repo internal.GasPricesRepository, client internal.GasPricesClient, logger *slog.Logger) func(c *gin.Context) {
	return func(c *gin.Context) {
		stationIds := parseIds(c.Query("ids"))
		if len(stationIds) > maxStationIds {
			c.JSON(http.StatusBadRequest, gin.H{"error": "too many station ids requested"})
			return
		}

		results, err := repo.LatestPrices(c.Request.Context(), stationIds)
		if err != nil {
			logger.Error("error while fetching latest prices", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
			return
		}

		c.JSON(http.StatusOK, models.LatestPricesResponse{
			Results:     results,
			Statistics:  stats.Derive(results),
			LastUpdated: client.LastUpdated(),
		})
	}
}

func parseIds(idsStr string) []string {
	var ids []string
	for _, part := range strings.Split(idsStr, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
