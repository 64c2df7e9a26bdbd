package httpserver

import (
	"context"

	"github.com/gin-gonic/gin"

	"git-actions/internal/metrics"
)

func (srv *HTTPServer) mapHandlers() {
	srv.registerMiddlewares()
	srv.registerSystemRoutes()
	srv.registerWebhookRoutes()
}

func (srv *HTTPServer) registerMiddlewares() {
	srv.gin.Use(gin.Recovery())
}

func (srv *HTTPServer) registerSystemRoutes() {
	srv.gin.GET("/health", srv.healthCheck)
	srv.gin.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// registerWebhookRoutes mounts one POST route per dispatch table entry.
func (srv *HTTPServer) registerWebhookRoutes() {
	ctx := context.Background()
	for _, entry := range srv.dispatcher.Entries() {
		srv.gin.POST(entry.Path, srv.dispatcher.HandleDelivery(entry))
		srv.l.Infof(ctx, "webhook %s registered at POST %s", entry.Name, entry.Path)
	}
}
