package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/core/cmd"
	"github.com/Adithyenkandasamy/Telegram-dress-changing-bot/internal/app"
)

func main() {
	// A missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load()

	err := cmd.Run(cmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig:        app.LoadConfig,
		Bootstrap:         app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("bot exited: %v", err)
	}
}
