package app

import (
	"easyforms/forms-api/app/form"
	"easyforms/forms-api/app/profile"
	"easyforms/forms-api/app/project"
	"easyforms/forms-api/app/root"
	"easyforms/forms-api/app/user"
	"easyforms/forms-api/internal"
	"easyforms/forms-api/pkg/middleware"
	"strings"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// projectsCacheTTL is how long a project listing is served from cache
const projectsCacheTTL = 5 * time.Second

// NewRouter registers all routes. The returned func stops the background
// work of the middleware.
func NewRouter(d *internal.Deps) (*gin.Engine, func()) {
	router := gin.New()

	rateLimit := v.GetInt("security.rate_limit")
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})

	router.Use(
		newCORS(strings.Split(v.GetString("host.cors"), ",")),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		middleware.NewMetricsMiddleware(),
	)

	router.HandleMethodNotAllowed = true

	// GET /metrics	-> Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.NewSessionMiddleware(d.DB, d.SessionSecret)
	turnstile := middleware.NewTurnstileMiddleware(middleware.TurnstileConfig{
		Enabled: v.GetBool("security.turnstile.enabled"),
		Secret:  v.GetString("security.turnstile.secret"),
	})

	m := router.Group("/api", rateLimiter.Middleware(), middleware.BodySizeLimiter(v.GetInt64("host.body_limit")))
	{
		// HEAD /api/heartbeat		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)
	}

	u := m.Group("/users")
	{
		// POST /api/users/register		-> Registers a new user
		u.POST("/register", func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/users/login		-> Logs in a user and sets the session cookie
		u.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// GET /api/users/logout		-> Clears the session cookie
		u.GET("/logout", auth, func(c *gin.Context) { user.UserLogout(c, d) })

		// POST /api/users/verify		-> Sends another verification email
		u.POST("/verify", func(c *gin.Context) { user.UserResendVerification(c, d) })

		// GET /api/users/verify		-> Redeems a verification link
		u.GET("/verify", func(c *gin.Context) { user.UserVerify(c, d) })

		// POST /api/users/reset-password	-> Sends a password reset link
		u.POST("/reset-password", func(c *gin.Context) { user.UserResetPassword(c, d) })

		// GET /api/users/reset-password	-> Redeems a password reset link
		u.GET("/reset-password", func(c *gin.Context) { user.UserConfirmResetPassword(c, d) })
	}

	p := m.Group("/profile", auth)
	{
		// GET /api/profile		-> Returns the user's profile
		p.GET("", func(c *gin.Context) { profile.ProfileFetch(c, d) })

		// POST /api/profile		-> Updates name, password or email
		p.POST("", func(c *gin.Context) { profile.ProfileUpdate(c, d) })

		// GET /api/profile/email	-> Redeems an email change link
		p.GET("/email", func(c *gin.Context) { profile.ProfileConfirmEmail(c, d) })
	}

	pr := m.Group("/projects", auth)
	{
		// POST /api/projects		-> Creates a project
		pr.POST("", func(c *gin.Context) { project.ProjectCreate(c, d) })

		// GET /api/projects		-> Lists projects with their forms
		pr.GET("", cacheProjects(d), func(c *gin.Context) { project.ProjectFetch(c, d) })

		// PATCH /api/projects/:id	-> Renames a project
		pr.PATCH("/:id", func(c *gin.Context) { project.ProjectUpdate(c, d) })

		// DELETE /api/projects/:id	-> Deletes a project and its forms
		pr.DELETE("/:id", func(c *gin.Context) { project.ProjectDelete(c, d) })
	}

	f := m.Group("/forms")
	{
		// POST /api/forms/:id/submit	-> Public endpoint websites post to
		f.POST("/:id/submit", turnstile, func(c *gin.Context) { form.FormSubmit(c, d) })

		// POST /api/forms		-> Creates a form in a project
		f.POST("", auth, func(c *gin.Context) { form.FormCreate(c, d) })

		// GET /api/forms/:id		-> Returns a form with its inbox
		f.GET("/:id", auth, func(c *gin.Context) { form.FormFetch(c, d) })

		// PATCH /api/forms/:id/inbox/:messageID/open		-> Marks a message opened
		f.PATCH("/:id/inbox/:messageID/open", auth, func(c *gin.Context) { form.FormMessageOpen(c, d) })

		// PATCH /api/forms/:id/inbox/:messageID/resolve	-> Marks a message resolved
		f.PATCH("/:id/inbox/:messageID/resolve", auth, func(c *gin.Context) { form.FormMessageResolve(c, d) })

		// DELETE /api/forms/:id/inbox/:messageID		-> Deletes a message
		f.DELETE("/:id/inbox/:messageID", auth, func(c *gin.Context) { form.FormMessageDelete(c, d) })
	}

	return router, rateLimiter.Stop
}

// newCORS lets the dashboard origins make credentialed requests while
// form submissions are open to every origin.
func newCORS(origins []string) gin.HandlerFunc {
	dashboard := cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})

	public := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", middleware.TurnstileHeader},
		ExposeHeaders:   []string{middleware.RequestIDHeader},
		MaxAge:          12 * time.Hour,
	})

	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/forms/") && strings.HasSuffix(p, "/submit") {
			public(c)
			return
		}

		dashboard(c)
	}
}

func cacheProjects(d *internal.Deps) gin.HandlerFunc {
	return cache.Cache(d.Cache, projectsCacheTTL, cache.WithCacheStrategyByRequest(func(c *gin.Context) (bool, cache.Strategy) {
		return true, cache.Strategy{
			CacheKey: internal.ProjectsCacheKey(c.GetString("userID")),
		}
	}))
}
