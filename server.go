package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/kitchen_backend/config"
	"bitbucket.org/mmdatafocus/kitchen_backend/controllers"
	"bitbucket.org/mmdatafocus/kitchen_backend/middlewares"
	"bitbucket.org/mmdatafocus/kitchen_backend/storage"
	"bitbucket.org/mmdatafocus/kitchen_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func correlationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Next()
	}
}

func buildEngine(logger *logrus.Logger) (*workflow.Engine, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	locker := storage.NewPathLocker()
	store := storage.NewDocumentStore(locker, logger)
	guard := storage.NewWipeGuard(workflow.MRPTrackedLists(), store, logger)
	repo := workflow.NewRepository(dataDir, store, guard)
	return workflow.NewEngine(repo, logger), nil
}

func buildRouter(engine *workflow.Engine, logger *logrus.Logger) *gin.Engine {
	ctl := controllers.New(engine, logger)

	r := gin.New()
	r.Use(correlationMiddleware())

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/login", ctl.Login)

	api := r.Group("/api", middlewares.RequireAuth())

	api.GET("/stock/:type", ctl.GetStock)
	api.GET("/stock/:type/movements", ctl.GetMovements)
	api.POST("/stock/:type/movements", ctl.PostMovement)
	api.PUT("/stock/:type/movements/:id/hide", ctl.HideMovement)
	api.POST("/stock/:type/items", ctl.CreateItem)
	api.PUT("/stock/:type/items/:id", ctl.UpdateItem)
	api.DELETE("/stock/:type/items/:id", ctl.DeleteItem)
	api.GET("/stock/:type/export", ctl.ExportStock)

	api.GET("/mrp", ctl.GetMRP)
	api.POST("/mrp/recipes", ctl.CreateRecipe)
	api.PUT("/mrp/recipes/:id", ctl.UpdateRecipe)
	api.DELETE("/mrp/recipes/:id", ctl.DeleteRecipe)
	api.GET("/mrp/recipes/:id/bom/export", ctl.ExportRecipeBOM)
	api.POST("/mrp/recipes/:id/bom/import", ctl.ImportRecipeBOM)

	api.POST("/mrp/production-orders", ctl.CreateProductionOrder)
	api.PUT("/mrp/production-orders/:id/status", ctl.TransitionProductionOrder)
	api.POST("/mrp/production-orders/:id/execute", ctl.ExecuteProductionOrder)

	api.POST("/mrp/purchase-orders", ctl.CreatePurchaseOrder)
	api.PUT("/mrp/purchase-orders/:id/adjust", ctl.AdjustPurchaseOrder)
	api.POST("/mrp/purchase-orders/:id/receive", ctl.ReceivePurchaseOrder)
	api.POST("/mrp/purchase-orders/:id/cancel", ctl.CancelPurchaseOrder)

	api.GET("/mrp/archive/:kind", ctl.ListArchivedOrders)
	api.POST("/mrp/orders/:kind/:id/archive", ctl.ArchiveOrder)
	api.POST("/mrp/orders/:kind/:id/restore", ctl.RestoreOrder)
	api.DELETE("/mrp/orders/:kind/:id", ctl.DeleteOrder)

	api.GET("/sales/points", ctl.ListSalesPoints)
	api.POST("/sales/points", ctl.CreateSalesPoint)
	api.DELETE("/sales/points/:id", ctl.DeleteSalesPoint)
	api.GET("/sales/points/:id/stock", ctl.PointStock)
	api.GET("/sales/orders", ctl.ListSalesOrders)
	api.POST("/sales/orders", ctl.CreateSalesOrder)
	api.POST("/sales/orders/:id/dispatch", ctl.DispatchSalesOrder)
	api.POST("/sales/orders/:id/cancel", ctl.CancelSalesOrder)
	api.POST("/sales/orders/:id/archive", ctl.ArchiveSalesOrder)

	r.NoRoute(customNotFoundHandler)
	return r
}

func main() {
	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	engine, err := buildEngine(logger)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "startup"}).Panic(err.Error())
	}

	// Orders written before numbering existed get numbers on startup so the
	// sequences are consistent before the first request lands.
	if n, err := engine.BackfillOrderNumbers(); err != nil {
		logger.WithFields(logrus.Fields{"field": "startup"}).Panic(err.Error())
	} else if n > 0 {
		logger.WithFields(logrus.Fields{"field": "startup", "count": n}).Info("backfilled order numbers")
	}

	if username := os.Getenv("ADMIN_USERNAME"); username != "" {
		if _, err := engine.EnsureUser(username, os.Getenv("ADMIN_PASSWORD"), "admin"); err != nil {
			logger.WithFields(logrus.Fields{"field": "startup"}).Panic(err.Error())
		}
	}

	r := buildRouter(engine, logger)

	port := config.Port()
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"info": "Listening",
	}).Info("serving on http://localhost:", port, "/")
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain in-flight requests; path locks guarantee no half-written files,
	// but we still give handlers time to finish their renames.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
