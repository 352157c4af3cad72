// Command token mints an HS256 bearer token for the API using jwt.secret.
package main

import (
	"fmt"
	"log"
	"time"

	flag "github.com/spf13/pflag"

	"loanterms/internal/auth"
	"loanterms/internal/config"
)

func main() {
	subject := flag.StringP("subject", "s", "", "token subject (required)")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to jwt.token_expiry)")
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		log.Fatal("subject is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		log.Fatalf("failed to initialize token service: %v", err)
	}

	token, expiresAt, err := tokens.Issue(*subject, *ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	log.Printf("token for %q expires %s", *subject, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
