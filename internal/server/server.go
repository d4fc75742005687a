package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"promptpulse/internal/analytics"
	"promptpulse/internal/catalog"
	"promptpulse/internal/config"
	"promptpulse/internal/metrics"
	"promptpulse/internal/model"
	"promptpulse/internal/recommend"
	"promptpulse/internal/suggest"
	"promptpulse/internal/trending"
)

// Server exposes the discovery API over HTTP. The catalog is read fresh on
// every request; scoring itself stays stateless.
type Server struct {
	router  *gin.Engine
	db      *catalog.DB
	cfg     config.Config
	limiter *rate.Limiter
	// now is injectable for tests; defaults to wall clock.
	now func() time.Time
}

func NewServer(db *catalog.DB, cfg config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		router:  gin.New(),
		db:      db,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(orDefault(cfg.RateLimit.RPS, 20)), orDefaultInt(cfg.RateLimit.Burst, 40)),
		now:     func() time.Time { return time.Now().UTC() },
	}
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.corsMiddleware())
	s.router.Use(s.rateLimitMiddleware())
	s.router.Use(s.metricsMiddleware())
	s.setupRoutes()
	return s
}

// Run starts the server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	v1 := s.router.Group("/api/v1")
	v1.GET("/trending", s.handleTrending)
	v1.GET("/trending/scores", s.handleTrendingScores)
	v1.GET("/prompts", s.handlePrompts)
	v1.GET("/prompts/:id", s.handlePrompt)
	v1.GET("/prompts/:id/related", s.handleRelated)
	v1.POST("/prompts/:id/events", s.handleEvent)
	v1.POST("/prompts/:id/ratings", s.handleRating)
	v1.POST("/foryou", s.handleForYou)
	v1.GET("/suggest", s.handleSuggest)
	v1.GET("/categories", s.handleCategories)
	v1.GET("/tags", s.handleTags)
	v1.GET("/analytics/engagement", s.handleEngagement)
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.IncHTTPRequest(route, strconv.Itoa(c.Writer.Status()))
	}
}

// GET /api/v1/trending?limit=&category=&min_score=&exclude=a,b
func (s *Server) handleTrending(c *gin.Context) {
	pool, err := s.db.ListPrompts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	opts := trending.Options{
		Limit:      intQuery(c, "limit", s.cfg.Discovery.TrendingLimit),
		MinScore:   floatQuery(c, "min_score", 0),
		Category:   c.Query("category"),
		ExcludeIDs: csvQuery(c, "exclude"),
		Now:        s.now(),
	}
	start := time.Now()
	out := trending.TrendingPrompts(pool, opts)
	metrics.ObserveScoring("trending", start)
	c.JSON(http.StatusOK, gin.H{"prompts": out})
}

// GET /api/v1/trending/scores?limit=&category=
func (s *Server) handleTrendingScores(c *gin.Context) {
	pool, err := s.db.ListPrompts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	opts := trending.Options{
		Limit:    intQuery(c, "limit", s.cfg.Discovery.TrendingLimit),
		Category: c.Query("category"),
		Now:      s.now(),
	}
	start := time.Now()
	out := trending.TrendingWithScores(pool, opts)
	metrics.ObserveScoring("trending", start)
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// GET /api/v1/prompts?q=&tag=&limit=
func (s *Server) handlePrompts(c *gin.Context) {
	ctx := c.Request.Context()
	if q := c.Query("q"); q != "" {
		out, err := s.db.Search(ctx, q, intQuery(c, "limit", 20))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"prompts": out})
		return
	}
	out, err := s.db.ListPrompts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tag := c.Query("tag"); tag != "" {
		filtered := make([]model.Prompt, 0, len(out))
		for _, p := range out {
			if p.HasTag(tag) {
				filtered = append(filtered, p)
			}
		}
		out = filtered
	}
	c.JSON(http.StatusOK, gin.H{"prompts": out})
}

// GET /api/v1/prompts/:id
func (s *Server) handlePrompt(c *gin.Context) {
	p, err := s.db.GetPrompt(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "prompt not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// GET /api/v1/prompts/:id/related?limit=&exclude=&min_score=
func (s *Server) handleRelated(c *gin.Context) {
	ctx := c.Request.Context()
	source, err := s.db.GetPrompt(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "prompt not found"})
		return
	}
	pool, err := s.db.ListPrompts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	opts := recommend.Options{
		Limit:      intQuery(c, "limit", s.cfg.Discovery.RelatedLimit),
		ExcludeIDs: csvQuery(c, "exclude"),
		MinScore:   floatQuery(c, "min_score", 0),
	}
	start := time.Now()
	out := recommend.Related(source, pool, opts)
	metrics.ObserveScoring("related", start)
	c.JSON(http.StatusOK, gin.H{"recommendations": out})
}

type forYouRequest struct {
	Viewed  []string `json:"viewed"`
	Saved   []string `json:"saved"`
	Exclude []string `json:"exclude"`
	Limit   int      `json:"limit"`
}

// POST /api/v1/foryou
func (s *Server) handleForYou(c *gin.Context) {
	var req forYouRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	ctx := c.Request.Context()
	pool, err := s.db.ListPrompts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	byID := make(map[string]model.Prompt, len(pool))
	for _, p := range pool {
		byID[p.ID] = p
	}
	history := recommend.History{
		Viewed: resolve(byID, req.Viewed),
		Saved:  resolve(byID, req.Saved),
	}
	opts := recommend.Options{
		Limit:      orDefaultInt(req.Limit, s.cfg.Discovery.ForYouLimit),
		ExcludeIDs: req.Exclude,
	}
	start := time.Now()
	out := recommend.ForYou(history, pool, opts)
	metrics.ObserveScoring("foryou", start)
	c.JSON(http.StatusOK, gin.H{"recommendations": out})
}

// GET /api/v1/suggest?task=&limit=
func (s *Server) handleSuggest(c *gin.Context) {
	task := strings.TrimSpace(c.Query("task"))
	if task == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task parameter is required"})
		return
	}
	pool, err := s.db.ListPrompts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	start := time.Now()
	out := suggest.ForTask(task, pool, intQuery(c, "limit", s.cfg.Discovery.SuggestLimit))
	metrics.ObserveScoring("suggest", start)
	c.JSON(http.StatusOK, gin.H{"task": task, "suggestions": out})
}

type eventRequest struct {
	Type string `json:"type" binding:"required"`
}

// POST /api/v1/prompts/:id/events
func (s *Server) handleEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.db.RecordEvent(c.Request.Context(), s.now(), req.Type, c.Param("id")); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "prompt not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type ratingRequest struct {
	Rating float64 `json:"rating"`
}

// POST /api/v1/prompts/:id/ratings
func (s *Server) handleRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.db.AddRating(c.Request.Context(), c.Param("id"), req.Rating); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "prompt not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/categories
func (s *Server) handleCategories(c *gin.Context) {
	out, err := s.db.Categories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// GET /api/v1/tags
func (s *Server) handleTags(c *gin.Context) {
	out, err := s.db.Tags(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": out})
}

// GET /api/v1/analytics/engagement?hours=24
func (s *Server) handleEngagement(c *gin.Context) {
	hours := intQuery(c, "hours", 24)
	now := s.now()
	events, err := s.db.LoadEvents(c.Request.Context(), now.Add(-time.Duration(hours)*time.Hour), now, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	buckets := analytics.HourlyEngagement(events)
	type bucket struct {
		Hour   time.Time      `json:"hour"`
		Counts map[string]int `json:"counts"`
	}
	out := make([]bucket, 0, len(buckets))
	for _, k := range analytics.SortedBucketKeys(buckets) {
		out = append(out, bucket{Hour: k, Counts: buckets[k]})
	}
	c.JSON(http.StatusOK, gin.H{
		"buckets": out,
		"top":     analytics.TopPromptsByEvents(events, 10),
	})
}

func resolve(byID map[string]model.Prompt, ids []string) []model.Prompt {
	var out []model.Prompt
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func intQuery(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func floatQuery(c *gin.Context, key string, def float64) float64 {
	if v := c.Query(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func csvQuery(c *gin.Context, key string) []string {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}

func orDefaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
