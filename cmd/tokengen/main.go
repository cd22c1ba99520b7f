// Package main provides a CLI tool for generating test credentials for the
// Calibra API. The defaults match the dev signing keys in config.go and will
// NOT work against a production deployment.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"calibra/internal/platform/auth"
)

const (
	// Dev signing keys - match config.go when JWT_SIGNING_KEY / ORACLE_SIGNING_KEY are not set
	devSigningKey       = "dev-secret-key-change-in-production"
	devOracleSigningKey = "dev-oracle-key-change-in-production"

	defaultIssuer   = "calibra"
	defaultOracle   = "oracle-router"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token,omitempty"`
	Hash      string            `json:"hash,omitempty"`
	Type      string            `json:"type"`
	Subject   string            `json:"subject,omitempty"`
	ExpiresIn string            `json:"expires_in,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	requesterCmd := flag.NewFlagSet("requester", flag.ExitOnError)
	oracleCmd := flag.NewFlagSet("oracle", flag.ExitOnError)
	adminCmd := flag.NewFlagSet("admin-hash", flag.ExitOnError)

	reqSubject := requesterCmd.String("subject", "", "Requester identity, becomes the certificate recipient (required)")
	reqKey := requesterCmd.String("key", envOr("JWT_SIGNING_KEY", devSigningKey), "Signing key")
	reqIssuer := requesterCmd.String("issuer", envOr("JWT_ISSUER", defaultIssuer), "Token issuer")
	reqTTL := requesterCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	reqJSON := requesterCmd.Bool("json", false, "Output as JSON")

	oracleSubject := oracleCmd.String("subject", envOr("ORACLE_IDENTITY", defaultOracle), "Transport identity")
	oracleKey := oracleCmd.String("key", envOr("ORACLE_SIGNING_KEY", devOracleSigningKey), "Signing key")
	oracleIssuer := oracleCmd.String("issuer", envOr("JWT_ISSUER", defaultIssuer), "Token issuer")
	oracleTTL := oracleCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	oracleJSON := oracleCmd.Bool("json", false, "Output as JSON")

	adminToken := adminCmd.String("token", "", "Admin token to hash (required)")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "requester":
		requesterCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		generateToken("requester_token", *reqSubject, *reqKey, *reqIssuer, auth.AudienceAPI, *reqTTL, *reqJSON)
	case "oracle":
		oracleCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		generateToken("oracle_token", *oracleSubject, *oracleKey, *oracleIssuer, auth.AudienceOracle, *oracleTTL, *oracleJSON)
	case "admin-hash":
		adminCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		hashAdminToken(*adminToken, *adminJSON)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate test credentials for the Calibra API

WARNING: The default keys are the dev keys and will NOT work in production.

Usage:
  tokengen <command> [flags]

Commands:
  requester    Sign a requester bearer token (audience calibra-api)
  oracle       Sign an oracle callback token (audience calibra-oracle)
  admin-hash   Bcrypt an admin token for ADMIN_TOKEN_HASH

Examples:
  tokengen requester -subject 0x2222222222222222222222222222222222222222
  tokengen oracle -ttl 1h
  tokengen admin-hash -token "$(openssl rand -hex 16)"

Use "tokengen <command> -h" for more information about a command.`)
}

func generateToken(kind, subject, key, issuer, audience string, ttl time.Duration, jsonOutput bool) {
	if subject == "" {
		fail("subject is required")
	}
	svc := auth.NewJWTService(key, issuer, audience, ttl)
	token, err := svc.GenerateToken(context.Background(), subject)
	if err != nil {
		fail("generating token: %v", err)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Type:      kind,
			Subject:   subject,
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header":   "Authorization: Bearer <token>",
				"audience": audience,
			},
		})
		return
	}
	fmt.Printf("Type:       %s\n", kind)
	fmt.Printf("Subject:    %s\n", subject)
	fmt.Printf("Audience:   %s\n", audience)
	fmt.Printf("Expires In: %s\n", ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
}

func hashAdminToken(token string, jsonOutput bool) {
	if token == "" {
		fail("token is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		fail("hashing token: %v", err)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Hash: string(hash),
			Type: "admin_token_hash",
			Usage: map[string]string{
				"env":    "ADMIN_TOKEN_HASH",
				"header": "X-Admin-Token: <token>",
			},
		})
		return
	}
	fmt.Println("ADMIN_TOKEN_HASH=" + string(hash))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"X-Admin-Token: <token>\" http://localhost:8080/admin/settings")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("encoding JSON: %v", err)
	}
}
