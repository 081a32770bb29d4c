// Command token-generator prints signed access tokens for local testing of
// the API. It reads the same configuration as the server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/phrazzld/pillbox-api/internal/config"
	"github.com/phrazzld/pillbox-api/internal/service/auth"
)

func main() {
	userFlag := flag.String("user", "", "User ID to issue the token for (random when empty)")
	flag.Parse()

	if err := run(context.Background(), *userFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, user string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	userID, err := parseUserID(user)
	if err != nil {
		return err
	}

	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	token, err := jwtService.GenerateToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Printf("User:  %s\nToken: %s\n", userID, token)
	return nil
}

// parseUserID returns the user ID given on the command line, or a new one.
func parseUserID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user ID %q: %w", s, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("user ID cannot be the nil UUID")
	}
	return id, nil
}
