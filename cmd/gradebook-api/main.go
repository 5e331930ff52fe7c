package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/aulalink/gradebook-api/api/swagger"
	"github.com/aulalink/gradebook-api/internal/handler"
	"github.com/aulalink/gradebook-api/internal/middleware"
	"github.com/aulalink/gradebook-api/internal/models"
	"github.com/aulalink/gradebook-api/internal/repository"
	"github.com/aulalink/gradebook-api/internal/service"
	"github.com/aulalink/gradebook-api/pkg/cache"
	"github.com/aulalink/gradebook-api/pkg/config"
	"github.com/aulalink/gradebook-api/pkg/database"
	"github.com/aulalink/gradebook-api/pkg/logger"
	corsmiddleware "github.com/aulalink/gradebook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/aulalink/gradebook-api/pkg/middleware/requestid"
)

// @title AulaLink Gradebook API
// @version 1.0.0
// @description Authentication and grade management backend for the teacher dashboard
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cfg.Reports.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Reports.CacheTTL, logr, true)
		}
	}

	adminRepo := repository.NewAdminRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	authService := service.NewAuthService(adminRepo, teacherRepo, studentRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	studentService := service.NewStudentService(studentRepo, teacherRepo, nil, logr)
	teacherService := service.NewTeacherService(teacherRepo, nil, logr)
	subjectService := service.NewSubjectService(subjectRepo, studentRepo, cacheService, nil, logr)
	gradeService := service.NewGradeService(gradeRepo, subjectRepo, cacheService, nil, logr)
	reportService := service.NewReportService(studentRepo, subjectRepo, gradeRepo, cacheService, cfg.Reports.CacheTTL, logr)

	authHandler := handler.NewAuthHandler(authService)
	studentHandler := handler.NewStudentHandler(studentService, authService, reportService)
	teacherHandler := handler.NewTeacherHandler(teacherService)
	subjectHandler := handler.NewSubjectHandler(subjectService, gradeService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/register/teacher", authHandler.RegisterTeacher)
	auth.POST("/register/admin",
		middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin),
		authHandler.RegisterAdmin)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	protected := api.Group("", middleware.JWT(authService))

	students := protected.Group("/students")
	students.GET("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), studentHandler.List)
	students.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), studentHandler.Create)
	students.GET("/:id", middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), "SELF"), studentHandler.Get)
	students.PUT("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), studentHandler.Update)
	students.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), studentHandler.Delete)
	students.POST("/:id/transfer", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), studentHandler.Transfer)
	students.GET("/:id/report", middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), "SELF"), studentHandler.Report)
	students.GET("/:id/report/export", middleware.RBAC(string(models.RoleTeacher), string(models.RoleAdmin), "SELF"), studentHandler.ExportReport)

	teachers := protected.Group("/teachers", middleware.RequireRoles(models.RoleAdmin))
	teachers.GET("", teacherHandler.List)
	teachers.PATCH("/:id/active", teacherHandler.SetActive)
	teachers.PATCH("/:id/password", teacherHandler.UpdatePassword)
	teachers.DELETE("/:id", teacherHandler.Delete)

	subjects := protected.Group("/subjects")
	subjects.GET("", subjectHandler.List)
	subjects.POST("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), subjectHandler.Assign)
	subjects.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), subjectHandler.Remove)
	subjects.GET("/:id/periods", subjectHandler.Periods)

	grades := protected.Group("/grades")
	grades.GET("", gradeHandler.Get)
	grades.PUT("", middleware.RequireRoles(models.RoleTeacher, models.RoleAdmin), gradeHandler.Save)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}
