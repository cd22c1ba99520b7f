package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	defaultPort      = "8082"
	defaultAPIKey    = "token-ledger-secret-key"
	defaultLatencyMs = "50"
)

type MintRequest struct {
	Recipient        string `json:"recipient"`
	ContentReference string `json:"content_reference"`
}

type MintResponse struct {
	TokenID   string `json:"token_id"`
	Recipient string `json:"recipient"`
	MintedAt  string `json:"minted_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Magic content references let tests drive the issuance failure paths.
const (
	refRejected = "ipfs://reject"
	refNoToken  = "ipfs://no-token"
	refSlow     = "ipfs://slow"
)

var (
	apiKey    = getEnv("API_KEY", defaultAPIKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	mu     sync.Mutex
	nextID = 1
	tokens = make(map[string]MintRequest)
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/v1/tokens", handleMint)

	log.Printf("Mock token ledger starting on port %s", port)
	log.Printf("Simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	mu.Lock()
	minted := len(tokens)
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "healthy",
		"service": "token-ledger",
		"minted":  minted,
	})
}

func handleMint(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-API-Key") != apiKey {
		sendError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Recipient == "" {
		sendError(w, "recipient is required", http.StatusBadRequest)
		return
	}

	switch req.ContentReference {
	case refRejected:
		sendError(w, "Mint reverted", http.StatusUnprocessableEntity)
		return
	case refNoToken:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(MintResponse{Recipient: req.Recipient})
		return
	case refSlow:
		time.Sleep(30 * time.Second)
	}

	mu.Lock()
	id := strconv.Itoa(nextID)
	nextID++
	tokens[id] = req
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(MintResponse{
		TokenID:   id,
		Recipient: req.Recipient,
		MintedAt:  time.Now().UTC().Format(time.RFC3339),
	})
	log.Printf("Minted token %s to %s (%s)", id, req.Recipient, req.ContentReference)
}

func sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
	log.Printf("Error response: %d - %s", code, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
