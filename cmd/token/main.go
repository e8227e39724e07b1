// Command token mints a company-scoped bearer token for the API.
//
//	AUTH_SECRET=... token -company acme -subject payroll-export -ttl 720h
//	AUTH_SECRET=... token -company '*' -subject ops
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/warp/ride-engine/auth"
	"github.com/warp/ride-engine/config"
)

func main() {
	cfg := config.Load()

	company := flag.String("company", "", "company ID the token is scoped to ('*' for all)")
	subject := flag.String("subject", "cli", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	if cfg.AuthSecret == "" {
		fmt.Fprintln(os.Stderr, "AUTH_SECRET is not set")
		os.Exit(1)
	}
	if *company == "" {
		fmt.Fprintln(os.Stderr, "-company is required")
		os.Exit(2)
	}

	token, err := auth.GenerateToken(cfg.AuthSecret, *subject, *company, *ttl, time.Now())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
