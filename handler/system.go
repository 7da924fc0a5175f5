package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BuildInfo is stamped at link time.
type BuildInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

type SystemHandler struct {
	build    BuildInfo
	provider string
}

func NewSystemHandler(build BuildInfo, provider string) *SystemHandler {
	return &SystemHandler{build: build, provider: provider}
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"version":  h.build.Version,
		"provider": h.provider,
	})
}

func (h *SystemHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    h.build.Version,
		"build_time": h.build.BuildTime,
		"git_commit": h.build.GitCommit,
		"provider":   h.provider,
	})
}

// Register mounts all routes on r.
func Register(r *gin.Engine, system *SystemHandler, seg *SegmentHandler) {
	r.GET("/health", system.Health)
	r.GET("/version", system.Version)

	api := r.Group("/api/v1")
	{
		api.POST("/segment", seg.Segment)
		api.GET("/result/:md5", seg.Result)
	}
}
