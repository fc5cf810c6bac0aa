package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"dreamdoc-backend/internal/analyzer"
	openaiclient "dreamdoc-backend/internal/analyzer/openai"
	"dreamdoc-backend/internal/billing"
	stripeclient "dreamdoc-backend/internal/billing/stripe"
	"dreamdoc-backend/internal/documents"
	"dreamdoc-backend/internal/payments"
	"dreamdoc-backend/internal/pipeline"
	"dreamdoc-backend/internal/pricing"
	"dreamdoc-backend/internal/results"
	"dreamdoc-backend/internal/shared/config"
	"dreamdoc-backend/internal/shared/metrics"
	"dreamdoc-backend/internal/shared/server/middleware"
	"dreamdoc-backend/internal/shared/server/respond"
	"dreamdoc-backend/internal/shared/storage/db"
	"dreamdoc-backend/internal/shared/storage/object"
	localstore "dreamdoc-backend/internal/shared/storage/object/local"
	miniostore "dreamdoc-backend/internal/shared/storage/object/minio"
	"dreamdoc-backend/internal/tasks"
)

const webhookRateGroup = "WEBHOOK"

// NewRouter constructs the Gin engine with middleware and routes
// registered. The returned tracker joins in-flight background jobs
// during shutdown.
func NewRouter(cfg config.Config) (*gin.Engine, *tasks.Tracker) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"DEFAULT":        {Rate: 5, Burst: 20},
				webhookRateGroup: {Rate: 20, Burst: 100},
			},
			GroupFor: func(c *gin.Context) string {
				if strings.HasSuffix(c.FullPath(), "/payments/webhook") {
					return webhookRateGroup
				}
				return ""
			},
		}),
	)

	store := newObjectStore(cfg)
	sqlDB := openDatabase(cfg)

	var docRepo documents.Repo
	var payRepo payments.Repo
	var resultRepo results.Repo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
		payRepo = &payments.PGRepo{DB: sqlDB}
		resultRepo = &results.PGRepo{DB: sqlDB}
	} else {
		memDocs := documents.NewMemoryRepo()
		docRepo = memDocs
		payRepo = payments.NewMemoryRepo()
		resultRepo = results.NewMemoryRepo(memDocs)
	}

	var ai analyzer.Client = openaiclient.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, "")
	var provider billing.Provider = stripeclient.New(stripeclient.Options{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.Currency,
		MinCharge:     cfg.MinChargeCents,
	})

	tracker := tasks.NewTracker()
	svc := &pipeline.Service{
		Docs:           docRepo,
		Payments:       payRepo,
		Results:        resultRepo,
		Store:          store,
		Billing:        provider,
		AI:             ai,
		Pricing:        pricing.NewCalculator(cfg.MinChargeCents),
		Tracker:        tracker,
		Currency:       cfg.Currency,
		MinCharge:      cfg.MinChargeCents,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	handler := pipeline.NewHandler(svc, cfg.StripePublishableKey)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	handler.RegisterRoutes(api)
	r.GET("/metrics", metrics.Handler())

	return r, tracker
}

func newObjectStore(cfg config.Config) object.ObjectStore {
	if cfg.ObjectStoreType == "minio" {
		store, err := miniostore.New(context.Background(), miniostore.Options{
			Endpoint:  cfg.MinioEndpoint,
			Region:    cfg.MinioRegion,
			Bucket:    cfg.MinioBucket,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			log.Printf("failed to init minio store, falling back to local: %v", err)
		} else {
			return store
		}
	}
	return localstore.New(cfg.LocalStoreDir)
}

func openDatabase(cfg config.Config) *sql.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	conn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		log.Printf("failed to connect database, falling back to memory: %v", err)
		return nil
	}
	if err := db.RunMigrations(context.Background(), conn); err != nil {
		log.Printf("failed to run migrations, falling back to memory: %v", err)
		return nil
	}
	return conn
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
