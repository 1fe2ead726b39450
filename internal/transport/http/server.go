package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "gopherchat/internal/app"
	"gopherchat/internal/bootstrap"
	"gopherchat/internal/cache"
	"gopherchat/internal/repository"
	"gopherchat/internal/transport/http/handler"
	"gopherchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestLogger(app.Logger), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Metrics.Registry, promhttp.HandlerOpts{})))

	var historyCache appsvc.HistoryCache
	if app.Redis != nil {
		historyCache = cache.NewHistoryCache(
			app.Redis,
			time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	userRepo := repository.NewUserRepository(app.DB)
	transcriptRepo := repository.NewTranscriptRepository(app.DB)

	credentials := appsvc.NewCredentialStore(userRepo, app.BcryptCost, app.Publisher, app.Logger)
	authenticator := appsvc.NewSessionAuthenticator(
		credentials,
		app.Sessions,
		app.Config.Auth.JWTSecret,
		app.Config.SessionTTL(),
		app.Metrics,
		app.Logger,
	)
	transcripts := appsvc.NewTranscriptStore(transcriptRepo, historyCache, app.Publisher, app.Logger)
	chatService := appsvc.NewChatService(
		transcripts,
		appsvc.NewContextWindowBuilder(transcripts),
		app.Generator,
		app.Config.LLM.ContextWindow,
		app.Publisher,
		app.Metrics,
		app.Logger,
	)

	authHandler := handler.NewAuthHandler(credentials, authenticator, handler.CookieSettings{
		Name:   app.Config.Auth.CookieName,
		Secure: app.Config.Auth.CookieSecure,
	})
	chatHandler := handler.NewChatHandler(chatService)
	requireSession := middleware.RequireSession(authenticator, app.Config.Auth.CookieName)

	api := router.Group("/api")
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)
	api.POST("/logout", authHandler.Logout)

	authed := api.Group("")
	authed.Use(requireSession)
	authed.GET("/me", authHandler.Me)
	authed.POST("/chat", chatHandler.SendMessage)
	authed.GET("/history", chatHandler.GetHistory)
	authed.POST("/clear-history", chatHandler.ClearHistory)

	return router
}
