// Command main mints a signed bearer token for local testing against the
// server's JWT verifier.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"ravencube/internal/auth"
	"ravencube/internal/config"
)

func main() {
	subject := flag.String("sub", "", "Identity subject (required)")
	email := flag.String("email", "", "Email claim")
	username := flag.String("username", "", "Preferred username claim")
	firstName := flag.String("first", "", "Given name claim")
	lastName := flag.String("last", "", "Family name claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *subject == "" {
		log.Fatal("-sub is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to mint tokens with production configuration")
	}

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.AuthIssuer, cfg.AuthAudience)
	token, err := verifier.Mint(auth.Identity{
		Subject:   *subject,
		Email:     *email,
		Username:  *username,
		FirstName: *firstName,
		LastName:  *lastName,
	}, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
