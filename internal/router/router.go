package router

import (
	"time"

	"stockpos/internal/config"
	"stockpos/internal/handler"
	"stockpos/internal/middleware"
	"stockpos/internal/model"
	"stockpos/internal/repository"
	"stockpos/internal/service"
	"stockpos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowOrigin))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	warehouseRepo := repository.NewWarehouseRepository(db)
	clientRepo := repository.NewClientRepository(db)
	stockRepo := repository.NewStockRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	counterRepo := repository.NewCounterRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	auditSvc := service.NewAuditService(auditRepo)
	stockSvc := service.NewStockService(stockRepo, dispatcher)
	movementSvc := service.NewMovementService(movementRepo, productRepo, warehouseRepo, stockSvc, auditSvc)
	saleSvc := service.NewSaleService(saleRepo, productRepo, clientRepo, counterRepo, stockSvc, movementSvc, auditSvc)
	transferSvc := service.NewTransferService(transferRepo, productRepo, warehouseRepo, counterRepo, stockSvc, movementSvc, auditSvc)
	productSvc := service.NewProductService(productRepo, auditSvc)
	warehouseSvc := service.NewWarehouseService(warehouseRepo, auditSvc)
	clientSvc := service.NewClientService(clientRepo, auditSvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	stockH := handler.NewStockHandler(stockSvc)
	movementsH := handler.NewMovementsHandler(movementSvc)
	salesH := handler.NewSalesHandler(saleSvc)
	transfersH := handler.NewTransfersHandler(transferSvc)
	productsH := handler.NewProductsHandler(productSvc)
	warehousesH := handler.NewWarehousesHandler(warehouseSvc)
	clientsH := handler.NewClientsHandler(clientSvc)
	auditH := handler.NewAuditHandler(auditSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleSeller)
	adminOnly := middleware.RequireRole(model.RoleAdmin)
	v1 := r.Group("/v1", jwtMW)
	{
		// Stock ledger — read surface
		v1.GET("/stock", anyRole, stockH.List)
		v1.GET("/stock/availability", anyRole, stockH.Availability)

		// Movements — manual movements mutate the ledger, admin only
		v1.GET("/movements", anyRole, movementsH.List)
		v1.POST("/movements", adminOnly, movementsH.Create)

		// Sales lifecycle
		sales := v1.Group("/sales", anyRole)
		{
			sales.POST("", salesH.Create)
			sales.GET("", salesH.List)
			sales.GET("/:id", salesH.Get)
			sales.PUT("/:id/lines", salesH.UpdateLines)
			sales.POST("/:id/confirm", salesH.Confirm)
			sales.POST("/:id/cancel", salesH.Cancel)
			sales.POST("/:id/payments", salesH.AddPayment)
			// Ownership enforced in the service: sellers only reach their
			// own drafts, admins reach any.
			sales.DELETE("/:id", salesH.Delete)
		}

		// Transfers — admin only, they move stock without a counterparty
		transfers := v1.Group("/transfers", adminOnly)
		{
			transfers.POST("", transfersH.Create)
			transfers.GET("", transfersH.List)
			transfers.GET("/:id", transfersH.Get)
			transfers.POST("/:id/confirm", transfersH.Confirm)
			transfers.POST("/:id/cancel", transfersH.Cancel)
		}

		// Master data
		v1.GET("/products", anyRole, productsH.List)
		v1.GET("/products/:id", anyRole, productsH.Get)
		products := v1.Group("/products", adminOnly)
		{
			products.POST("", productsH.Create)
			products.PUT("/:id", productsH.Update)
		}

		v1.GET("/warehouses", anyRole, warehousesH.List)
		v1.GET("/warehouses/:id", anyRole, warehousesH.Get)
		v1.POST("/warehouses", adminOnly, warehousesH.Create)

		clients := v1.Group("/clients", anyRole)
		{
			clients.POST("", clientsH.Create)
			clients.GET("", clientsH.List)
			clients.GET("/:id", clientsH.Get)
		}

		// Audit trail — admin only
		v1.GET("/audit", adminOnly, auditH.List)
	}

	return r
}
