package handlers

import "github.com/gin-gonic/gin"

// Routes groups the planner handlers for registration.
type Routes struct {
	Sessions  *SessionHandler
	Metrics   *MetricsHandler
	Campaigns *CampaignHandler
	Platforms *PlatformHandler
}

// Register mounts every planner endpoint under r.
func (rt Routes) Register(r gin.IRouter) {
	sessions := r.Group("/sessions")
	sessions.POST("", rt.Sessions.Create)
	sessions.GET("/:id", rt.Sessions.Get)
	sessions.DELETE("/:id", rt.Sessions.Delete)
	sessions.POST("/:id/view", rt.Sessions.SetView)
	sessions.POST("/:id/shift", rt.Sessions.Shift)
	sessions.POST("/:id/groups/:assignee/toggle", rt.Sessions.ToggleGroup)
	sessions.GET("/:id/timeline", rt.Sessions.Timeline)
	sessions.GET("/:id/items", rt.Sessions.Items)

	r.POST("/metrics/ensure", rt.Metrics.Ensure)
	r.GET("/metrics/:id", rt.Metrics.Peek)

	r.POST("/campaigns/:id/reload", rt.Campaigns.Reload)

	r.GET("/platforms", rt.Platforms.List)
	r.POST("/platforms/validate", rt.Platforms.Validate)
}
