package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/announa/blogpost/configs"
	"github.com/announa/blogpost/internal/auth"
	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
	authservice "github.com/announa/blogpost/internal/service/auth-service"
	postservice "github.com/announa/blogpost/internal/service/post-service"
	productservice "github.com/announa/blogpost/internal/service/product-service"
	userservice "github.com/announa/blogpost/internal/service/user-service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	RefreshCookie  = "refreshToken"
	refreshPath    = "/api/auth"
	healthzTimeout = 2 * time.Second
)

type Services struct {
	Auth     *authservice.AuthService
	Users    *userservice.UserService
	Posts    *postservice.PostService
	Products *productservice.ProductService
}

type RestAPI struct {
	logger   *zap.Logger
	cfg      *configs.Config
	jwt      ports.JWT
	denylist ports.Denylist
	pinger   ports.Pinger
	limiter  *RateLimiter
	services Services
	*gin.Engine
}

func NewRestAPI(
	cfg *configs.Config,
	logger *zap.Logger,
	jwt ports.JWT,
	denylist ports.Denylist,
	pinger ports.Pinger,
	limiter *RateLimiter,
	services Services,
	engine *gin.Engine,
) *RestAPI {
	return &RestAPI{
		logger:   logger,
		cfg:      cfg,
		jwt:      jwt,
		denylist: denylist,
		pinger:   pinger,
		limiter:  limiter,
		services: services,
		Engine:   engine,
	}
}

func (r *RestAPI) Serve() error {
	// without trusted proxies the client address is always the peer address
	if err := r.SetTrustedProxies(r.cfg.Server.TrustedProxies); err != nil {
		return fmt.Errorf("set trusted proxies: %w", err)
	}

	r.Use(gin.Recovery(), ZapLogger(r.logger), CORS(r.cfg.Server.AllowedOrigins))

	r.GET("/healthz", r.healthz)

	authenticated := auth.AuthMiddleware(r.jwt, r.denylist, r.logger)
	adminOnly := auth.RequireRole(domain.RoleAdmin)

	api := r.Group("/api")

	authGroup := api.Group("/auth", r.limiter.Middleware())
	authGroup.POST("/register", r.register)
	authGroup.POST("/login", r.login)
	authGroup.POST("/token", r.refreshToken)
	authGroup.POST("/logout", authenticated, r.logout)
	authGroup.GET("/me", authenticated, r.me)
	authGroup.PUT("/password", authenticated, r.changePassword)
	authGroup.POST("/forgot-password", r.forgotPassword)
	authGroup.POST("/reset-password/:token", r.resetPassword)

	posts := api.Group("/posts")
	posts.GET("", r.listPosts)
	posts.GET("/:id", r.getPost)
	posts.POST("", authenticated, r.createPost)
	posts.PUT("/:id", authenticated, r.updatePost)
	posts.DELETE("/:id", authenticated, r.deletePost)

	products := api.Group("/products")
	products.GET("", r.listProducts)
	products.GET("/:id", r.getProduct)
	products.POST("", authenticated, adminOnly, r.createProduct)
	products.PUT("/:id", authenticated, adminOnly, r.updateProduct)
	products.DELETE("/:id", authenticated, adminOnly, r.deleteProduct)

	users := api.Group("/users", authenticated, adminOnly)
	users.GET("", r.listUsers)
	users.GET("/:id", r.getUser)
	users.PUT("/:id/role", r.setUserRole)
	users.DELETE("/:id", r.deleteUser)

	if dir := r.cfg.Server.StaticDir; dir != "" {
		r.NoRoute(serveSPA(dir))
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
		})
	}
	return nil
}

func (r *RestAPI) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthzTimeout)
	defer cancel()
	if err := r.pinger.Ping(ctx); err != nil {
		r.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleServiceError maps domain errors to HTTP responses.
func (r *RestAPI) handleServiceError(c *gin.Context, err error) {
	var (
		status  int
		message string
	)
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrWeakPassword):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrResetTokenInvalid):
		status, message = http.StatusBadRequest, domain.ErrResetTokenInvalid.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, message = http.StatusUnauthorized, domain.ErrInvalidCredentials.Error()
	case errors.Is(err, domain.ErrTokenReused):
		status, message = http.StatusUnauthorized, domain.ErrTokenReused.Error()
	case errors.Is(err, domain.ErrTokenInvalid):
		status, message = http.StatusUnauthorized, domain.ErrTokenInvalid.Error()
	case errors.Is(err, domain.ErrForbidden):
		status, message = http.StatusForbidden, domain.ErrForbidden.Error()
	case errors.Is(err, domain.ErrUserNotExist):
		status, message = http.StatusNotFound, domain.ErrUserNotExist.Error()
	case errors.Is(err, domain.ErrPostNotFound):
		status, message = http.StatusNotFound, domain.ErrPostNotFound.Error()
	case errors.Is(err, domain.ErrProductNotFound):
		status, message = http.StatusNotFound, domain.ErrProductNotFound.Error()
	case errors.Is(err, domain.ErrUserExists):
		status, message = http.StatusConflict, domain.ErrUserExists.Error()
	default:
		r.logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		status, message = http.StatusInternalServerError, "internal server error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func (r *RestAPI) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

func (r *RestAPI) setSessionCookies(c *gin.Context, session *authservice.Session) {
	secure := gin.Mode() == gin.ReleaseMode
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.AccessCookie, session.AccessToken,
		maxAge(session.AccessExpiresAt), "/", "", secure, true)
	c.SetCookie(RefreshCookie, session.RefreshToken,
		maxAge(session.RefreshExpiresAt), refreshPath, "", secure, true)
}

func (r *RestAPI) clearSessionCookies(c *gin.Context) {
	secure := gin.Mode() == gin.ReleaseMode
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.AccessCookie, "", -1, "/", "", secure, true)
	c.SetCookie(RefreshCookie, "", -1, refreshPath, "", secure, true)
}

func maxAge(expiresAt time.Time) int {
	seconds := int(time.Until(expiresAt).Seconds())
	if seconds < 1 {
		return -1
	}
	return seconds
}

// actor must only be called behind AuthMiddleware.
func actor(c *gin.Context) (postservice.Actor, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrTokenInvalid.Error()})
		return postservice.Actor{}, false
	}
	return postservice.Actor{UserID: claims.UserID, Role: domain.Role(claims.Role)}, true
}
