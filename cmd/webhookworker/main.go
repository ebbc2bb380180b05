package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"chat-layer/config"
	"chat-layer/db"
	"chat-layer/eventbus"
	"chat-layer/logger"
	"chat-layer/repositories"
)

func main() {
	config.InitApp()
	logger.InitFromEnv("LOG_LEVEL")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB 초기화
	if err := db.Init(ctx); err != nil {
		logger.Log.Errorf("failed to initialize MongoDB: %v", err)
		os.Exit(1)
	}

	cfg := config.GetConfig()
	brokers := cfg.Kafka.Brokers
	if brokers == "" {
		logger.Log.Error("KAFKA_BOOTSTRAP_SERVERS is required for the webhook worker")
		os.Exit(1)
	}
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "chat-layer"
	}

	// EventBus 초기화 및 토픽 보장
	for _, t := range eventbus.AllTopics {
		if err := eventbus.EnsureTopics(brokers, t, 3); err != nil {
			logger.Log.Errorf("failed to ensure eventbus topics for %s: %v", t.Base(), err)
		}
	}

	bus, err := eventbus.NewKafkaEventBus(brokers)
	if err != nil {
		logger.Log.Errorf("failed to create event bus: %v", err)
		os.Exit(1)
	}
	defer bus.Close()

	webhooksRepo := repositories.NewWebhookRepository(db.Database())
	dispatcher := NewDispatcher(bus, webhooksRepo)
	deliverer := NewDeliverer(webhooksRepo)

	logger.Log.Info("starting webhook worker service with eventbus...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// 대화 수명주기 이벤트 -> 엔드포인트별 전송 작업으로 팬아웃
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := eventbus.SubscribeJSON(ctx, bus, groupID+"-webhook-fanout", eventbus.TopicConversationEvents,
			func(ctx context.Context, ev eventbus.ConversationEvent, _ eventbus.Event) error {
				return dispatcher.FanOut(ctx, ev)
			})
		if err != nil && err != context.Canceled {
			logger.Log.Errorf("eventbus subscribe error (fanout): %v", err)
		}
	}()

	// 전송 작업 -> 실제 HTTP 전송
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := eventbus.SubscribeJSON(ctx, bus, groupID+"-webhook-delivery", eventbus.TopicWebhookDeliveries,
			func(ctx context.Context, job eventbus.WebhookDelivery, _ eventbus.Event) error {
				return deliverer.Deliver(ctx, job)
			})
		if err != nil && err != context.Canceled {
			logger.Log.Errorf("eventbus subscribe error (delivery): %v", err)
		}
	}()

	// 재주입기 시작 (지연 토픽 -> 기본 토픽)
	for _, t := range eventbus.AllTopics {
		topic := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			topicGroupID := groupID + "-retry-" + strings.ReplaceAll(topic.Base(), ".", "-")
			if err := bus.StartRetryReinjector(ctx, topicGroupID, topic); err != nil && err != context.Canceled {
				logger.Log.Errorf("eventbus retry reinjector error for %s: %v", topic.Base(), err)
			}
		}()
	}

	<-sigChan
	logger.Log.Info("received shutdown signal, shutting down webhook worker service...")

	cancel()
	wg.Wait()

	logger.Log.Info("webhook worker service stopped")
}
