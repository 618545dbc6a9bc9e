package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/minhtran/claimflow/internal/config"
	"github.com/minhtran/claimflow/internal/infrastructure/notification"
	"github.com/minhtran/claimflow/pkg/utils"
)

// Isolated test for SMTP delivery. Sends a single message using the configured
// SMTP settings so delivery problems can be diagnosed without the full system.

func main() {
	fmt.Println("=== SMTP Delivery Test ===")
	fmt.Println()

	if len(os.Args) < 2 {
		fmt.Println("Usage: ./bin/test-email <recipient>")
		os.Exit(1)
	}
	recipient := os.Args[1]

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Notification.SMTP.Host == "" {
		log.Fatal("notification.smtp.host is not configured")
	}
	fmt.Printf("SMTP host: %s:%d\n", cfg.Notification.SMTP.Host, cfg.Notification.SMTP.Port)
	fmt.Printf("From: %s\n", cfg.Notification.SMTP.From)
	fmt.Printf("To: %s\n", recipient)

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: "debug", OutputPath: "stdout", Format: "console"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	sender := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.Notification.SMTP.Host,
		Port:     cfg.Notification.SMTP.Port,
		Username: cfg.Notification.SMTP.Username,
		Password: cfg.Notification.SMTP.Password,
		From:     cfg.Notification.SMTP.From,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subject := "Claimflow SMTP test"
	body := fmt.Sprintf("Test message sent at %s.", time.Now().Format("2006-01-02 15:04:05"))
	if err := sender.Send(ctx, []string{recipient}, subject, body); err != nil {
		fmt.Printf("✗ Delivery failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✓ Message accepted by SMTP server")
}
