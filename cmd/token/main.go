// Command token signs a development bearer token for a user id.
// The server only verifies tokens; real issuance belongs to the identity
// service.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/abbaskhalil042/smart-talk/internal/auth"
)

func main() {
	secret := flag.String("secret", "", "JWT signing secret (defaults to $JWT_SECRET)")
	user := flag.String("user", "", "User UUID (random if omitted)")
	email := flag.String("email", "", "Email claim (optional)")
	ttl := flag.Duration("ttl", 10*time.Hour, "Token lifetime")
	flag.Parse()

	if *secret == "" {
		*secret = os.Getenv("JWT_SECRET")
	}
	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Usage: token -secret <jwt-secret> [-user <uuid>] [-email <email>] [-ttl <duration>]")
		os.Exit(1)
	}

	userID := uuid.New()
	if *user != "" {
		parsed, err := uuid.Parse(*user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid user id: %v\n", err)
			os.Exit(1)
		}
		userID = parsed
	}

	token, err := auth.Sign(*secret, userID, *email, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("user:  %s\n", userID)
	fmt.Printf("token: %s\n", token)
}
