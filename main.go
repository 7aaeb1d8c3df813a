package main

import (
	"learnpulse/internal/client"
	"learnpulse/internal/config"
	"learnpulse/internal/database"
	"learnpulse/internal/engine"
	logger "learnpulse/internal/logging"
	"learnpulse/internal/repository"
	"learnpulse/internal/router"

	"go.uber.org/zap"
)

func main() {
	// Console-only logger until the file logger has its configuration.
	bootLog, err := zap.NewDevelopment()
	if err != nil {
		panic("failed to initialize bootstrap logger: " + err.Error())
	}

	if err := config.Init(".", bootLog); err != nil {
		bootLog.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Logger
	logCfg := config.Conf.Logging
	log, err := logger.Init(logger.Options{
		Directory:  logCfg.Directory,
		MaxSize:    logCfg.MaxSize,
		MaxBackups: logCfg.MaxBackups,
		MaxAge:     logCfg.MaxAge,
		Compress:   logCfg.Compress,
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize Database
	database.Init(log)

	consentRepo := repository.NewConsentRepository(database.DB)
	archiveRepo := repository.NewArchiveRepository(database.DB)

	tracking := config.Conf.Tracking
	aiClient := client.NewAIClient(tracking.AIServiceURL, log)
	backendClient := client.NewBackendClient(tracking.BackendURL, log)

	manager := engine.NewManager(log, engine.Options{
		UpdateInterval:       tracking.UpdateInterval(),
		ReconnectDelay:       tracking.ReconnectDelay(),
		ExpectedBlockSeconds: float64(tracking.ExpectedBlockSeconds),
		PushEnabled:          tracking.PushEnabled,
		PushURL:              aiClient.EventsURL,
	}, backendClient, aiClient, archiveRepo, archiveRepo, consentRepo, nil)

	// Setup router, passing the logger to it
	r := router.Setup(log, manager)

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
