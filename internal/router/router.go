package router

import (
	"time"

	"learnpulse/internal/engine"
	"learnpulse/internal/handlers"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(429, "Too many requests. Try again later.")
}

func Setup(log *zap.Logger, manager *engine.Manager) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	// Handlers and routes
	trackHandler := handlers.NewTrackHandler(log, manager)
	consentHandler := handlers.NewConsentHandler(log, manager)
	streamHandler := handlers.NewStreamHandler(log, manager)

	// Session starts are rate limited per client; event batches are not,
	// the UI already throttles them to one every few seconds.
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 10,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	track := router.Group("/track")
	{
		track.POST("/session/start", limiter, trackHandler.StartSession)
		track.POST("/session/end", trackHandler.EndSession)
		track.POST("/events", trackHandler.IngestEvents)
		track.POST("/interaction", trackHandler.RecordInteraction)
		track.POST("/quiz", trackHandler.RecordQuiz)
		track.POST("/break", trackHandler.RecordBreak)
		track.POST("/reread", trackHandler.RecordReread)
		track.POST("/help", trackHandler.RecordHelpRequest)
		track.POST("/pause", trackHandler.RecordPause)
		track.GET("/scores", trackHandler.Scores)
		track.GET("/intervention", trackHandler.TakeIntervention)
		track.GET("/stream", streamHandler.Stream)
		track.GET("/consent", consentHandler.GetConsent)
		track.POST("/consent", consentHandler.UpdateConsent)
	}

	return router
}
