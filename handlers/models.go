package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pcap-analysis-api/config"
)

// HandleListModels returns the static model catalog.
func HandleListModels(catalog *config.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"default_model": catalog.DefaultModel,
			"models":        catalog.Models,
		})
	}
}
