package handlers

import (
	"html/template"
	"net/http"
	"time"

	_ "secrets_portal/docs"
	"secrets_portal/internal/logger"
	"secrets_portal/internal/service"
	"secrets_portal/internal/views"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Options configures the cookie session and CORS.
type Options struct {
	// SessionSecret signs the session cookie.
	SessionSecret  []byte
	CookieName     string
	SecureCookies  bool
	SessionMaxAge  time.Duration
	AllowedOrigins []string
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	opts     Options
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts Options) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = "secrets_session"
	}
	return &Handler{services: services, log: log, opts: opts}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)
	router.SetHTMLTemplate(template.Must(views.Load()))

	if len(h.opts.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = h.opts.AllowedOrigins
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
		router.Use(cors.New(corsConfig))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// JSON API (bearer token, no cookie session)
	h.registerAPIRoutes(router)

	// Server-rendered pages (cookie session)
	h.registerPageRoutes(router)

	return router
}

func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	store := cookie.NewStore(h.opts.SessionSecret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(h.opts.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(h.opts.CookieName, store)
}

func (h *Handler) registerPageRoutes(r *gin.Engine) {
	pages := r.Group("/", h.sessionMiddleware(), h.loadCurrentUser)
	{
		pages.GET("/", h.home)

		anonymous := pages.Group("", h.anonymousOnly)
		{
			anonymous.GET("/register", h.registerForm)
			anonymous.POST("/register", h.register)
			anonymous.GET("/login", h.loginForm)
			anonymous.POST("/login", h.login)
		}

		protected := pages.Group("", h.requireLogin)
		{
			protected.GET("/secrets", h.secrets)
			protected.GET("/logout", h.logout)
			protected.GET("/download", h.download)
		}
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/auth/sign-in", h.signIn)
		api.GET("/me", h.userIdMiddleware, h.me)
	}
}
