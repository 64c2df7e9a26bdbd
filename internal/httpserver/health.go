package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ServiceName identifies the service in health responses.
const ServiceName = "git-actions"

// healthCheck reports liveness. The route only exists once the dispatch
// table has loaded, so reaching it means the service is serving.
func (srv *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
	})
}
