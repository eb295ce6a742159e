// Package auth provides authentication and authorization for the API.
//
// Users sign in either with GitHub (OAuth authorization code flow) or with a
// username-or-email and password. Either way the session cookie only
// carries the user id; Middleware.Handler looks the user up again on every
// request, so role changes and deletions take effect immediately.
//
// # Configuration
//
//	AUTH_SESSION_LIFETIME=24h       # Session duration
//	AUTH_BCRYPT_COST=10             # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true        # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5       # Password login attempts per window
//	AUTH_CSRF_ENABLED=true          # Require X-CSRF-Token on unsafe methods
//	AUTH_LINK_UNVERIFIED_EMAIL=true # Link OAuth identities by unverified email
//	GITHUB_CLIENT_ID=...            # Enables /auth/github
//
// # Usage
//
//	sessions := auth.NewSessionManager(sqlDB, cfg.Auth)
//	router.Use(sessions.SessionLoadSave())
//	router.Use(auth.NewMiddleware(authService, sessions).Handler())
//	router.POST("/books", middleware.RequireAdmin(), controller.Create)
//
// Extract user in handlers:
//
//	user := auth.GetUser(c) // nil for anonymous requests
package auth
