package main

import (
	"context"
	"net/http"
	"os"

	"chat-layer/cmd/api/router"
	"chat-layer/cmd/api/services"
	"chat-layer/config"
	"chat-layer/db"
	_ "chat-layer/docs" // swag will generate this package
	"chat-layer/eventbus"
	"chat-layer/logger"
)

// @title           Chat Layer API
// @version         1.0
// @description     Backend for embedding a hosted conversational assistant in third-party sites
// @BasePath        /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in              header
// @name            Authorization
func main() {
	config.InitApp()
	logger.InitFromEnv("LOG_LEVEL")

	if err := db.Init(context.Background()); err != nil {
		logger.Log.Errorf("failed to init mongodb: %v", err)
		os.Exit(1)
	}

	authSvc, err := services.NewAuthServiceFromEnv()
	if err != nil {
		logger.Log.Errorf("failed to init auth service: %v", err)
		os.Exit(1)
	}

	// Kafka is optional for the API: without it lifecycle events are simply
	// not published and webhooks stay silent.
	var bus eventbus.EventBus
	if brokers := config.GetConfig().Kafka.Brokers; brokers != "" {
		kafkaBus, err := eventbus.NewKafkaEventBus(brokers)
		if err != nil {
			logger.Log.Errorf("failed to create event bus: %v", err)
			os.Exit(1)
		}
		defer kafkaBus.Close()
		bus = kafkaBus

		for _, t := range eventbus.AllTopics {
			if err := eventbus.EnsureTopics(brokers, t, 3); err != nil {
				logger.Log.Errorf("failed to ensure eventbus topics for %s: %v", t.Base(), err)
			}
		}
	} else {
		logger.Log.Warn("KAFKA_BOOTSTRAP_SERVERS not set; lifecycle events disabled")
	}

	r := router.New(authSvc, bus)

	if err := r.Run(":8080"); err != nil && err != http.ErrServerClosed {
		logger.Log.Errorf("server stopped: %v", err)
		os.Exit(1)
	}
}
