package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"asistencia/internal/attendance"
	"asistencia/internal/config"
	"asistencia/internal/httpmiddleware"
	"asistencia/internal/logging"
	"asistencia/internal/metrics"
	"asistencia/internal/queue"
	"asistencia/internal/schoolday"
	"asistencia/internal/store"
)

func main() {
	cfg := config.Load()

	log, closeLog, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer closeLog()

	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.App, log *zap.Logger) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(attendance.Options{
		Store:    repo,
		Queue:    q,
		Cache:    redisClient.Client,
		CacheTTL: cfg.WorkdayCacheTTL,
		Log:      log,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.RequestMetrics())
	r.Use(httpmiddleware.NewIPRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		dbHealthy := db.Client.PingContext(pingCtx) == nil
		redisHealthy := redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"db": dbHealthy, "redis": redisHealthy})
	})

	r.GET("/attendance/perfect", func(c *gin.Context) {
		year, month, ok := yearMonth(c)
		if !ok {
			return
		}
		students, failed, err := svc.PerfectAttendance(c.Request.Context(), year, month)
		if err != nil {
			abortWith(c, err)
			return
		}
		resp := gin.H{
			"year":     year,
			"month":    int(month),
			"students": emptyIfNil(students),
		}
		if len(failed) > 0 {
			resp["failed_courses"] = failed
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/attendance/perfect-by-course", func(c *gin.Context) {
		year, month, ok := yearMonth(c)
		if !ok {
			return
		}
		results, err := svc.PerfectByCourse(c.Request.Context(), year, month)
		if err != nil {
			abortWith(c, err)
			return
		}
		courses := make([]gin.H, 0, len(results))
		for _, res := range results {
			entry := gin.H{
				"course":         res.Course,
				"total_students": res.TotalStudents,
				"perfect_count":  len(res.Perfect),
				"perfect":        emptyIfNil(res.Perfect),
			}
			if res.Err != nil {
				entry["error"] = "could not compute attendance for this course"
			}
			courses = append(courses, entry)
		}
		c.JSON(http.StatusOK, gin.H{"year": year, "month": int(month), "courses": courses})
	})

	r.GET("/attendance/summary", func(c *gin.Context) {
		year, month, ok := yearMonth(c)
		if !ok {
			return
		}
		courseID := c.Query("course_id")
		if courseID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "course_id required"})
			return
		}
		sums, err := svc.MonthSummaries(c.Request.Context(), courseID, year, month)
		if err != nil {
			abortWith(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"course_id": courseID, "year": year, "month": int(month), "students": emptyIfNil(sums)})
	})

	r.GET("/attendance/working-days", func(c *gin.Context) {
		year, month, ok := yearMonth(c)
		if !ok {
			return
		}
		days, err := svc.WorkingDays(c.Request.Context(), c.Query("course_id"), year, month)
		if err != nil {
			abortWith(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"year": year, "month": int(month), "days": days})
	})

	r.GET("/attendance/blocked-reasons", func(c *gin.Context) {
		date, err := time.Parse("2006-01-02", c.Query("date"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		reasons, err := svc.BlockReasons(c.Request.Context(), date, c.Query("course_id"))
		if err != nil {
			abortWith(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": c.Query("date"), "reasons": emptyIfNil(reasons)})
	})

	r.POST("/attendance/save", func(c *gin.Context) {
		var req struct {
			CourseID string `json:"course_id" binding:"required"`
			Marks    []struct {
				StudentID string `json:"student_id" binding:"required"`
				Date      string `json:"date" binding:"required"`
				Present   bool   `json:"present"`
				Justified bool   `json:"justified"`
			} `json:"marks" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		marks := make([]schoolday.Mark, 0, len(req.Marks))
		for _, m := range req.Marks {
			date, err := time.Parse("2006-01-02", m.Date)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "mark date must be YYYY-MM-DD"})
				return
			}
			marks = append(marks, schoolday.Mark{
				StudentID: m.StudentID,
				CourseID:  req.CourseID,
				Date:      date,
				Present:   m.Present,
				Justified: m.Justified,
			})
		}

		if err := svc.EnqueueMarks(c.Request.Context(), marks); err != nil {
			abortWith(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": len(marks)})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// yearMonth pulls the required year/month query params, answering 400 itself
// when they are missing or malformed. Range validation stays with the
// calculator.
func yearMonth(c *gin.Context) (int, time.Month, bool) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year required"})
		return 0, 0, false
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month required"})
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func abortWith(c *gin.Context, err error) {
	if errors.Is(err, schoolday.ErrInvalidMonth) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// emptyIfNil keeps JSON arrays as [] instead of null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
