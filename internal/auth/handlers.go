package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/oauth2"
	"github.com/mrlokans/librarian/internal/oauth2/providers"
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
// Returns true if the path is safe for redirect (local path only).
func isLocalPath(path string) bool {
	if path == "" {
		return false
	}

	// Must start with /
	if !strings.HasPrefix(path, "/") {
		return false
	}

	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}

	// Reject URLs with schemes
	if strings.Contains(path, "://") {
		return false
	}

	// Reject paths with backslashes (potential bypass attempts)
	if strings.Contains(path, "\\") {
		return false
	}

	return true
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	providers      *oauth2.Registry
	rateLimiter    *RateLimiter
	audit          *audit.Service
}

// NewAuthController creates a new authentication controller. auditService
// may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, registry *oauth2.Registry, rateLimiter *RateLimiter, auditService *audit.Service) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		providers:      registry,
		rateLimiter:    rateLimiter,
		audit:          auditService,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginRedirect)
	router.GET("/logout", ac.Logout)

	group := router.Group("/auth")
	group.GET("/github", ac.BeginOAuth(providers.GitHubName))
	group.GET("/github/callback", ac.OAuthCallback(providers.GitHubName))
	group.POST("/login", ac.Login)
	group.GET("/logout", ac.Logout)
	group.POST("/logout", ac.Logout)
	group.GET("/user", ac.CurrentUser)
	group.GET("/status", ac.Status)
}

// LoginRedirect sends browsers to the GitHub consent page.
func (ac *AuthController) LoginRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, "/auth/"+providers.GitHubName)
}

// BeginOAuth stores a fresh state in the session and redirects to the
// provider. An optional local returnTo path is honored after the callback.
func (ac *AuthController) BeginOAuth(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider, err := ac.providers.Get(name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Sign-in with " + name + " is not configured",
			})
			return
		}

		state, err := oauth2.GenerateState()
		if err != nil {
			log.Printf("Failed to generate OAuth state: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server Error"})
			return
		}

		ctx := c.Request.Context()
		ac.sessionManager.PutOAuthState(ctx, state)
		if returnTo := c.Query("returnTo"); isLocalPath(returnTo) {
			ac.sessionManager.Put(ctx, SessionKeyReturnTo, returnTo)
		}

		c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
	}
}

// OAuthCallback completes the authorization code flow and signs the user in.
func (ac *AuthController) OAuthCallback(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider, err := ac.providers.Get(name)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Sign-in with " + name + " is not configured",
			})
			return
		}

		ctx := c.Request.Context()
		expected := ac.sessionManager.PopOAuthState(ctx)
		if expected == "" || c.Query("state") != expected {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid OAuth state",
			})
			return
		}

		if providerErr := c.Query("error"); providerErr != "" {
			ac.logAuth(c, "", "oauth_login", false)
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication failed: " + providerErr,
			})
			return
		}

		profile, err := provider.Exchange(ctx, c.Query("code"))
		if err != nil {
			log.Printf("OAuth exchange with %s failed: %v", name, err)
			ac.logAuth(c, "", "oauth_login", false)
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication failed",
			})
			return
		}

		user, err := ac.service.SignInWithProfile(ctx, profile)
		if err != nil {
			ac.logAuth(c, "", "oauth_login", false)
			_ = c.Error(err)
			return
		}

		if err := ac.sessionManager.CreateSession(ctx, user.ID); err != nil {
			log.Printf("Failed to create session: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create session"})
			return
		}
		ac.logAuth(c, user.ID, "oauth_login", true)

		if returnTo := ac.sessionManager.PopString(ctx, SessionKeyReturnTo); isLocalPath(returnTo) {
			c.Redirect(http.StatusFound, returnTo)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Login successful",
			"user":    userPayload(user),
		})
	}
}

type loginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles password sign-in with a JSON body.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Login and password are required",
		})
		return
	}
	clientIP := c.ClientIP()

	// Check rate limiting before attempting authentication
	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Login)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many login attempts. Please try again later.",
			})
			return
		}
	}

	ctx := c.Request.Context()
	user, err := ac.service.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			_ = c.Error(err)
			return
		}
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, req.Login)
		}
		ac.logAuth(c, "", "login", false)
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"message": "Invalid username or password",
		})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, req.Login)
	}

	if err := ac.sessionManager.CreateSession(ctx, user.ID); err != nil {
		log.Printf("Failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create session"})
		return
	}
	ac.logAuth(c, user.ID, "login", true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"user":    userPayload(user),
	})
}

// Logout destroys the session.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.sessionManager.DestroySession(c.Request.Context()); err != nil {
		log.Printf("Failed to destroy session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error logging out"})
		return
	}
	if userID != "" {
		ac.logAuth(c, userID, "logout", true)
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// CurrentUser returns the signed-in user or 401.
func (ac *AuthController) CurrentUser(c *gin.Context) {
	user := GetUser(c)
	if user == nil {
		abortUnauthorized(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    userPayload(user),
	})
}

// Status reports whether the request carries a signed-in session.
func (ac *AuthController) Status(c *gin.Context) {
	if !IsAuthenticated(c) {
		c.JSON(http.StatusOK, gin.H{
			"isAuthenticated": false,
			"user":            nil,
		})
		return
	}
	user := GetUser(c)
	c.JSON(http.StatusOK, gin.H{
		"isAuthenticated": true,
		"user": gin.H{
			"id":        user.ID,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
			"role":      user.Role,
		},
	})
}

// CSRFToken hands out the token clients must echo in X-CSRF-Token.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"csrfToken": GetCSRFToken(c),
	})
}

func (ac *AuthController) logAuth(c *gin.Context, userID, action string, success bool) {
	if ac.audit != nil {
		ac.audit.LogAuth(userID, action, c.ClientIP(), success)
	}
}

func userPayload(user *entities.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"email":     user.Email,
		"role":      user.Role,
		"status":    user.Status,
	}
}
