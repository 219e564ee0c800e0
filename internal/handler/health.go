package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-adaptive/internal/database"
	"github.com/stemsi/exstem-adaptive/internal/response"
)

// Health godoc
// GET /health
// Reports the storage driver and the state of every backing service. Any
// failed probe turns the response into a 503 so load balancers drain the node.
func Health(storage string, probes ...database.Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps, healthy := database.CheckAll(c.Request.Context(), probes)
		if !healthy {
			response.FailWithFields(c, http.StatusServiceUnavailable, response.ErrDependencyUnavailable, deps)
			return
		}
		response.Success(c, http.StatusOK, gin.H{
			"status":       "ok",
			"storage":      storage,
			"dependencies": deps,
		})
	}
}
