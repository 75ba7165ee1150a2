// Command token mints a bearer token for a query client.
//
// Usage:
//
//	JWT_SECRET=... go run ./cmd/token -sub backtester -ttl 720h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"ashare_store/internal/platform/config"
	jwtmw "ashare_store/internal/platform/jwt"
)

func main() {
	sub := flag.String("sub", "", "client name placed in the subject claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfgPath := "config/ashare.yaml"
	if p := os.Getenv("ASHARE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	token, err := jwtmw.NewGenerator(cfg.Auth.JWTSecret, *ttl).GenerateToken(*sub)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
