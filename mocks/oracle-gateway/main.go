package main

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort      = "8081"
	defaultAPIKey    = "oracle-gateway-secret-key"
	defaultLatencyMs = "200"
	defaultCallback  = "http://localhost:8080/v1/oracle/callback"
)

type SubmitRequest struct {
	Source     string   `json:"source"`
	Args       []string `json:"args"`
	SecretsRef string   `json:"secrets_ref,omitempty"`
}

type SubmitResponse struct {
	Handle string `json:"handle"`
}

type CallbackRequest struct {
	Handle   string `json:"handle"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

var (
	apiKey        = getEnv("API_KEY", defaultAPIKey)
	latencyMs     = getEnvInt("LATENCY_MS", defaultLatencyMs)
	callbackURL   = getEnv("CALLBACK_URL", defaultCallback)
	callbackToken = os.Getenv("CALLBACK_TOKEN") // mint with: tokengen oracle
	accredited    = parseList(getEnv("ACCREDITED_LABS", "LAB-001,LAB-002"))
	client        = &http.Client{Timeout: 10 * time.Second}
)

// Magic subjects let tests drive the failure branches.
const (
	subjectTransportError = "ORACLE-ERROR"
	subjectBothPayloads   = "ORACLE-BOTH"
	subjectGatewayDown    = "ORACLE-DOWN"
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/v1/requests", handleSubmit)

	log.Printf("Mock oracle gateway starting on port %s", port)
	log.Printf("Callback URL: %s", callbackURL)
	log.Printf("Simulated latency: %dms", latencyMs)
	if callbackToken == "" {
		log.Printf("CALLBACK_TOKEN not set, callbacks will be rejected with 401")
	}

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "oracle-gateway",
	})
}

func handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.Header.Get("X-API-Key") != apiKey {
		sendError(w, "Invalid API key", http.StatusUnauthorized)
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		sendError(w, "source is required", http.StatusBadRequest)
		return
	}
	if len(req.Args) > 0 && req.Args[0] == subjectGatewayDown {
		sendError(w, "Gateway unavailable", http.StatusServiceUnavailable)
		return
	}

	handle := newHandle()
	go deliver(handle, req.Args)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(SubmitResponse{Handle: handle})
	log.Printf("Accepted request %s for args=%v", handle, req.Args)
}

func deliver(handle string, args []string) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	cb := evaluate(handle, args)
	body, _ := json.Marshal(cb)
	req, err := http.NewRequest(http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("Callback request for %s: %v", handle, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+callbackToken)

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("Callback for %s failed: %v", handle, err)
		return
	}
	defer resp.Body.Close()
	log.Printf("Callback for %s answered %d", handle, resp.StatusCode)
}

func evaluate(handle string, args []string) CallbackRequest {
	if len(args) == 0 || args[0] == "" {
		return CallbackRequest{Handle: handle, Error: hexString("missing subject")}
	}
	switch args[0] {
	case subjectTransportError:
		return CallbackRequest{Handle: handle, Error: hexString("execution reverted")}
	case subjectBothPayloads:
		return CallbackRequest{Handle: handle, Response: encodeResult(1), Error: hexString("partial failure")}
	}
	if accredited[args[0]] {
		return CallbackRequest{Handle: handle, Response: encodeResult(1)}
	}
	return CallbackRequest{Handle: handle, Response: encodeResult(0)}
}

// encodeResult renders n as a 32-byte big-endian word.
func encodeResult(n byte) string {
	word := make([]byte, 32)
	word[31] = n
	return "0x" + hex.EncodeToString(word)
}

func hexString(s string) string {
	return "0x" + hex.EncodeToString([]byte(s))
}

func newHandle() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return "0x" + hex.EncodeToString(b)
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

func parseList(raw string) map[string]bool {
	out := make(map[string]bool)
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out[item] = true
		}
	}
	return out
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
