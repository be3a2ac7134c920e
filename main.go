package main

import (
	"io"
	"log"

	"github.com/joho/godotenv"

	"docscan/cmd"
	"docscan/internal/config"
	"docscan/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	var closer io.Closer
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load configuration: %v", err)
		closer, err = logger.Setup(logger.DefaultConfig())
	} else {
		closer, err = logger.Setup(cfg.GetLoggerConfig())
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer closer.Close()

	log := logger.WithComponent("main")
	log.Info().Msg("Starting docscan")

	// A nil config lets the commands report the configuration error.
	cmd.Execute(cfg)

	log.Info().Msg("docscan shutdown")
}
