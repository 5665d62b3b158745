// Command issue-token prints a bearer token for a directory user, for local testing
// against the API.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/garyjia/approval-center/internal/config"
	httpapi "github.com/garyjia/approval-center/internal/interfaces/http"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	userID := flag.Int64("user", 0, "user id to issue the token for")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: issue-token -user <id> [-config path]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	tokens := httpapi.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	token, err := tokens.Issue(*userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
