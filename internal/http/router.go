package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
//
// Reads of books and categories are public. Book writes need an admin,
// category writes any signed-in user. Every loan route needs a session.
// Anyone may register through POST /users.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(Recovery(cfg.ShowErrorDetail))
	router.Use(RequestIDMiddleware())
	router.Use(auth.SecurityHeadersMiddleware())

	if len(cfg.CORSOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.CORSOrigins))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	router.Use(cfg.AuthMiddleware.Handler())
	router.Use(ErrorHandler(cfg.ShowErrorDetail))

	requireAuth := cfg.AuthMiddleware.RequireAuth()
	requireAdmin := cfg.AuthMiddleware.RequireAdmin()

	healthController := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", healthController.Status)

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
		if len(cfg.CSRFSecret) > 0 {
			router.GET("/auth/csrf", cfg.AuthController.CSRFToken)
		}
	}

	booksController := NewBooksController(cfg.Catalog)
	books := router.Group("/books")
	{
		books.GET("", booksController.List)
		books.GET("/category/:categoryId", booksController.ListByCategory)
		books.GET("/:id", booksController.Get)
		books.POST("", requireAdmin, booksController.Create)
		books.PUT("/:id", requireAdmin, booksController.Update)
		books.DELETE("/:id", requireAdmin, booksController.Delete)
	}

	categoriesController := NewCategoriesController(cfg.Catalog)
	categories := router.Group("/categories")
	{
		categories.GET("", categoriesController.List)
		categories.GET("/:id", categoriesController.Get)
		categories.POST("", requireAuth, categoriesController.Create)
		categories.PUT("/:id", requireAuth, categoriesController.Update)
		categories.DELETE("/:id", requireAuth, categoriesController.Delete)
	}

	loansController := NewLoansController(cfg.Catalog)
	loans := router.Group("/loans", requireAuth)
	{
		loans.GET("", loansController.List)
		loans.GET("/overdue", loansController.ListOverdue)
		loans.GET("/user/:userId", loansController.ListByUser)
		loans.GET("/:id", loansController.Get)
		loans.POST("", loansController.Create)
		loans.PUT("/:id", loansController.Update)
		loans.DELETE("/:id", loansController.Delete)
	}

	usersController := NewUsersController(cfg.AuthService)
	users := router.Group("/users")
	{
		users.POST("", usersController.Create)
		users.GET("", requireAuth, usersController.List)
		users.GET("/:id", requireAuth, usersController.Get)
		users.PUT("/:id", requireAuth, usersController.Update)
		users.DELETE("/:id", requireAuth, usersController.Delete)
	}

	if cfg.Audit != nil {
		auditController := NewAuditController(cfg.Audit)
		router.GET("/audit", requireAdmin, auditController.List)
		router.GET("/audit/:entityType/:id", requireAdmin, auditController.History)
	}

	router.NoRoute(NotFound)

	return router
}
