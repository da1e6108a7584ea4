// Command issue-token signs a JWT for local testing and service accounts.
// Production tokens come from the school portal, which shares JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/logger"
	"github.com/stemsi/leave-assessment/internal/service"
)

func main() {
	var (
		tokenType string
		userID    int
	)
	flag.StringVar(&tokenType, "type", "student", "Token type: student or admin")
	flag.IntVar(&userID, "user", 0, "User ID to embed in the token")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user must be a positive id")
		flag.PrintDefaults()
		os.Exit(2)
	}

	authService := service.NewAuthService(cfg)
	token, err := authService.GenerateToken(service.TokenType(tokenType), userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to issue token")
	}

	log.Debug().Str("type", tokenType).Int("user_id", userID).Dur("expiry", cfg.JWTExpiry).Msg("Token issued")
	fmt.Println(token)
}
