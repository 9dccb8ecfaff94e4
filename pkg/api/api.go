// Package api exposes a minimal gin HTTP surface for operational
// introspection: a health check, queue-depth/sleeping-job/registry-count
// stats, and an optional prediction endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opera-rt/opera/pkg/body"
	"github.com/opera-rt/opera/pkg/history"
	"github.com/opera-rt/opera/pkg/registry"
	"github.com/opera-rt/opera/pkg/version"
)

// Introspectable is the subset of *runtime.Runtime the router reports on.
type Introspectable interface {
	QueueDepth() int
	SleepingCount() int
}

// Server wraps a gin engine bound to a registry and runtime.
type Server struct {
	engine   *gin.Engine
	registry *registry.Registry
	rt       Introspectable
}

// NewServer builds the router. mode is passed straight to gin.SetMode
// (e.g. gin.ReleaseMode in production, gin.DebugMode in development).
func NewServer(reg *registry.Registry, rt Introspectable, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	s := &Server{engine: gin.Default(), registry: reg, rt: rt}
	s.routes()
	return s
}

// Run blocks serving HTTP on addr (e.g. ":8080").
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/stats", s.handleStats)
	s.engine.GET("/predict/:robotId/:mode", s.handlePredict)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": version.Full(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"humans":           s.registry.CountHumans(),
		"robots":           s.registry.CountRobots(),
		"queue_depth":      s.rt.QueueDepth(),
		"sleeping_jobs":    s.rt.SleepingCount(),
		"latest_timestamp": s.registry.LatestTimestamp(),
	})
}

// handlePredict backs an optional operator query: "how long until robot
// :robotId reaches mode :mode", answered via history.Predict against the
// robot's history snapshot at the current latest observed timestamp.
// :mode is a single "name=value" pair; a multi-variable mode target isn't
// exposed over this endpoint since the route has no natural way to carry
// an arbitrary assignment map.
func (s *Server) handlePredict(c *gin.Context) {
	robotID := c.Param("robotId")
	modeParam := c.Param("mode")

	name, value, ok := splitModeParam(modeParam)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be name=value"})
		return
	}

	hist, ok := s.registry.RobotHistory(robotID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown robot"})
		return
	}

	target := body.NewMode(map[string]string{name: value})
	snapshot := hist.SnapshotAt(s.registry.LatestTimestamp())

	timing, err := history.Predict(snapshot, target)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"impossible":          timing.ImpossiblePrediction,
		"nanoseconds_to_mode": timing.NanosecondsToMode,
		"estimated":           (time.Duration(timing.NanosecondsToMode) * time.Nanosecond).String(),
	})
}

func splitModeParam(s string) (name, value string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}
