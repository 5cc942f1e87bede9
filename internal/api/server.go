package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/ah-its-andy/tengine/internal/db"
	"github.com/ah-its-andy/tengine/internal/engine"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/metrics"
	"github.com/gin-gonic/gin"
)

// HotFolder is the part of the folder watcher the API controls.
type HotFolder interface {
	Pause()
	Resume()
	Paused() bool
	ScanAll() int
}

// Options configures a Server. DB, Metrics and Watch are optional.
type Options struct {
	Engine  *engine.Engine
	DB      *db.DB
	Metrics *metrics.Metrics
	Watch   HotFolder
	TempDir string
	Version string
}

type Server struct {
	Router  *gin.Engine
	engine  *engine.Engine
	db      *db.DB
	metrics *metrics.Metrics
	watch   HotFolder
	tempDir string
	version string
}

func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery(), requestLogger())

	s := &Server{
		Router:  g,
		engine:  opts.Engine,
		db:      opts.DB,
		metrics: opts.Metrics,
		watch:   opts.Watch,
		tempDir: opts.TempDir,
		version: opts.Version,
	}
	if s.tempDir == "" {
		s.tempDir = os.TempDir()
	}

	g.POST("/transform", s.transform)
	g.GET("/transform/config", s.transformConfig)
	g.GET("/version", s.getVersion)
	g.GET("/ready", s.ready)
	g.GET("/live", s.live)
	g.GET("/log", s.listLogs)
	g.GET("/log/:id", s.getLog)
	g.GET("/stats", s.getStats)
	if s.metrics != nil {
		g.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	if s.watch != nil {
		g.GET("/watch", s.watchState)
		g.POST("/watch/pause", s.pauseWatch)
		g.POST("/watch/resume", s.resumeWatch)
		g.POST("/watch/rescan", s.rescan)
	}
	return s
}

func requestLogger() gin.HandlerFunc {
	log := logging.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "duration", time.Since(start))
	}
}

func (s *Server) transformConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Config())
}

func (s *Server) getVersion(c *gin.Context) {
	c.String(http.StatusOK, "tengine %s", s.version)
}

func (s *Server) ready(c *gin.Context) {
	versions, err := s.engine.Check(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": http.StatusServiceUnavailable, "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "versions": versions})
}

func (s *Server) live(c *gin.Context) {
	c.String(http.StatusOK, "Success - alive")
}

func (s *Server) listLogs(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"data": []db.TransformLog{}, "total": 0})
		return
	}
	limit := parseIntDefault(c.Query("limit"), 50)
	offset := parseIntDefault(c.Query("offset"), 0)
	rows, total, err := s.db.ListTransformLogs(limit, offset, c.Query("status"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": total})
}

func (s *Server) getLog(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	row, err := s.db.GetTransformLog(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if row == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) getStats(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, db.Stats{ByTransform: map[string]int64{}})
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) watchState(c *gin.Context) {
	state := "running"
	if s.watch.Paused() {
		state = "paused"
	}
	c.JSON(http.StatusOK, gin.H{"watcher_state": state})
}

func (s *Server) pauseWatch(c *gin.Context) {
	s.watch.Pause()
	s.watchState(c)
}

func (s *Server) resumeWatch(c *gin.Context) {
	s.watch.Resume()
	s.watchState(c)
}

// rescan queues every file under the watch roots. Events are ignored while
// the scan runs; a watcher that was paused beforehand stays paused.
func (s *Server) rescan(c *gin.Context) {
	wasPaused := s.watch.Paused()
	s.watch.Pause()
	n := s.watch.ScanAll()
	if !wasPaused {
		s.watch.Resume()
	}
	logging.Named("http").Info("rescan", "queued", n)
	c.JSON(http.StatusOK, gin.H{"queued": n})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
