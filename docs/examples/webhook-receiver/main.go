// LeadLens Webhook Receiver Example
//
// This is a minimal example of how to receive and verify LeadLens webhooks.
//
// Usage:
//   export LEADLENS_WEBHOOK_SECRET="your_secret_here"
//   go run main.go
//
// Then configure your LeadLens webhook to point to http://your-server:9000/webhook

package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"
)

// JobEvent represents the webhook payload for job.completed and job.failed events
type JobEvent struct {
	EventType string         `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

func main() {
	secret := os.Getenv("LEADLENS_WEBHOOK_SECRET")
	if secret == "" {
		log.Fatal("LEADLENS_WEBHOOK_SECRET environment variable is required")
	}

	http.HandleFunc("/webhook", webhookHandler(secret))
	http.HandleFunc("/health", healthHandler)

	log.Println("Starting webhook receiver on :9000")
	log.Println("Endpoint: http://localhost:9000/webhook")
	log.Fatal(http.ListenAndServe(":9000", nil))
}

func webhookHandler(secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Read body
		body, err := io.ReadAll(r.Body)
		if err != nil {
			log.Printf("Error reading body: %v", err)
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		// Get signature headers
		signature := r.Header.Get("X-LeadLens-Signature")
		timestamp := r.Header.Get("X-LeadLens-Timestamp")
		if signature == "" || timestamp == "" {
			log.Println("Missing X-LeadLens-Signature or X-LeadLens-Timestamp header")
			http.Error(w, "Missing signature", http.StatusUnauthorized)
			return
		}

		// Verify signature
		if !verifySignature(signature, timestamp, string(body), secret) {
			log.Println("Invalid signature")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		// Parse event
		var event JobEvent
		if err := json.Unmarshal(body, &event); err != nil {
			log.Printf("Error parsing JSON: %v", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		// Process the event
		log.Printf("✓ Received %s event", event.EventType)
		log.Printf("  Delivery: %s", r.Header.Get("X-LeadLens-Delivery-Id"))
		log.Printf("  Job ID:   %v", event.Data["job_id"])
		log.Printf("  Status:   %v", event.Data["status"])
		log.Printf("  Results:  %v", event.Data["result_count"])

		// Respond with 200 OK
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "received"})
	}
}

// verifySignature verifies the HMAC-SHA256 signature from LeadLens
//
// Signed payload: {timestamp}.{body}
// The signature is the hex-encoded HMAC of the signed payload.
func verifySignature(signature, timestamp, body, secret string) bool {
	// Check timestamp (±5 min tolerance)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if math.Abs(float64(time.Now().Unix()-ts)) > 300 {
		log.Println("Signature timestamp too old or in future")
		return false
	}

	// Compute expected signature
	signedPayload := fmt.Sprintf("%s.%s", timestamp, body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison
	return hmac.Equal([]byte(signature), []byte(expected))
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
