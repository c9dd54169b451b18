package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/rezkam/taskflow/pkg/jwt"
)

// Command-line tool to mint a bearer token for a user against the configured
// signing secret. A development/testing utility, not a production auth flow.
func main() {
	user := flag.String("user", "", "User id to mint the token for (required)")
	ttl := flag.Duration("ttl", jwt.DefaultTTL, "Token lifetime")

	flag.Parse()

	if *user == "" {
		flag.Usage()
		log.Fatal("user id is required")
	}

	_ = godotenv.Load()
	secret := os.Getenv("TASKFLOW_JWT_SECRET")
	if secret == "" {
		log.Fatal("TASKFLOW_JWT_SECRET is required")
	}

	token, err := jwt.NewManager(secret, *ttl).Mint(*user)
	if err != nil {
		log.Fatalf("Failed to mint token: %v", err)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires: %s\n", time.Now().UTC().Add(*ttl).Format(time.RFC3339))
}
