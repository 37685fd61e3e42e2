package controller

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the grading endpoints on router.
func RegisterRoutes(router gin.IRouter, h *GraderController) {
	router.GET("/healthz", h.Health)
	api := router.Group("/api")
	api.GET("/hello", h.Hello)
	api.POST("/submit-url", h.SubmitURL)
}
