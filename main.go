package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"pcap-analysis-api/config"
	"pcap-analysis-api/handlers"
	"pcap-analysis-api/jobs"
	"pcap-analysis-api/llm"
	"pcap-analysis-api/subscriber"
	"pcap-analysis-api/testui"
	"pcap-analysis-api/utils"

	valkeystore "pcap-analysis-api/valkey"

	_ "embed"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//go:embed web/index.html
var indexHTML string

func main() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("cannot initialize logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Load the static model catalog
	catalog, err := config.LoadCatalog()
	if err != nil {
		sugar.Fatalw("failed to load model catalog",
			"error", err)
	}

	// Initialize Valkey (job state + work dispatch)
	valkeystore.InitValkey(logger)

	// Initialize PostgreSQL database
	if err := utils.InitDB(logger); err != nil {
		sugar.Fatalw("failed to init database",
			"error", err)
	}
	defer utils.CloseDB(logger)

	// Create database schema
	if err := utils.CreateSchema(logger); err != nil {
		sugar.Fatalw("failed to create database schema",
			"error", err)
	}

	// Initialize S3 (capture payload storage)
	if err := utils.InitS3(logger); err != nil {
		sugar.Fatalw("failed to init s3",
			"error", err)
	}

	store := jobs.NewStore(&jobs.ValkeyBackend{Client: valkeystore.Client})

	// Start the job workers in background
	worker := &subscriber.Worker{
		Logger: logger,
		Jobs:   store,
		Gen:    llm.NewClient(logger),
	}
	subscriber.StartSubscribers(logger, worker)

	deps := handlers.SubmitDeps{
		Jobs:    store,
		Catalog: catalog,
		Upload:  utils.UploadCapture,
		Publish: func(ctx context.Context, channel, message string) error {
			return valkeystore.Client.Publish(ctx, channel, message).Err()
		},
	}

	// Setup HTTP server
	r := gin.New()
	sugar.Info("Creating router")

	r.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(logger, true))

	// Routes
	// Analysis job routes
	r.POST("/api/analyze", handlers.HandleAnalyzeSubmit(logger, deps))
	r.POST("/api/analyze/process", handlers.HandleAnalyzeSubmit(logger, deps))
	r.GET("/api/analyze/status", handlers.HandleJobStatus(logger, store, jobs.KindAnalysis))

	// Comparison job routes
	r.POST("/api/compare", handlers.HandleCompareSubmit(logger, deps))
	r.GET("/api/compare/status", handlers.HandleJobStatus(logger, store, jobs.KindCompare))

	// Catalog and report history
	r.GET("/api/models", handlers.HandleListModels(catalog))
	r.GET("/api/reports", handlers.HandleListReports(logger))
	r.GET("/api/reports/:session", handlers.HandleGetReport(logger))
	r.GET("/api/reports/:session/html", handlers.HandleGetReportHTML(logger))

	// Health check
	r.GET("/healthcheck", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	r.GET("/db-status", handlers.HandleDBStatus())
	r.GET("/metrics", handlers.HandleMetrics())

	testui.RegisterRoutes(r, "/", indexHTML)

	sugar.Infow("Running on port",
		"port", utils.MustGetEnv("APP_PORT"))
	port := utils.MustGetEnv("APP_PORT")
	r.Run(fmt.Sprintf(":%s", port))
}
