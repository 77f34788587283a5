package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/example/pos-sync/internal/infrastructure/kafka"
	"github.com/example/pos-sync/internal/kitchen"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TICKETS_TOPIC", "kitchen-tickets")
	consumerGroup := getEnv("KAFKA_GROUP", "kitchen-display")

	log.Println("[Kitchen] ========================================")
	log.Println("[Kitchen] POS Sync - Kitchen Display Service")
	log.Println("[Kitchen] ========================================")
	log.Printf("[Kitchen] Kafka: %v", kafkaBrokers)
	log.Printf("[Kitchen] Topic: %s", kafkaTopic)
	log.Printf("[Kitchen] Group: %s", consumerGroup)

	display := kitchen.NewDisplay()

	// Initialize Kafka consumer
	consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, consumerGroup)
	defer consumer.Close()

	// Start consuming
	go func() {
		log.Println("[Kitchen] Starting ticket consumer...")
		if err := consumer.Consume(ctx, display.HandleMessage); err != nil {
			log.Printf("[Kitchen] Consumer error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Kitchen] Shutting down...")
	cancel()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
