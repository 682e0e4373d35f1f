// Package relay forwards completion requests to the hosted Messages
// API, injecting the API key server-side so simulation hosts never
// carry the credential themselves.
package relay

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	defaultUpstream = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
	maxBodyBytes    = 1 << 20
)

// Handler forwards POSTs upstream with credentials attached.
type Handler struct {
	APIKey   string
	Upstream string // empty = hosted API
	Client   *http.Client
}

// New creates a relay handler. The API key is required.
func New(apiKey, upstream string) (*Handler, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("relay requires an API key")
	}
	if upstream == "" {
		upstream = defaultUpstream
	}
	return &Handler{
		APIKey:   apiKey,
		Upstream: upstream,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Mux returns the relay's route table.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/messages", h.handleForward)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func (h *Handler) handleForward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.Upstream, bytes.NewReader(body))
	if err != nil {
		http.Error(w, "build upstream request", http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", h.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	resp, err := h.Client.Do(req)
	if err != nil {
		slog.Error("upstream call failed", "error", err)
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	n, _ := io.Copy(w, resp.Body)

	slog.Info("relayed request",
		"status", resp.StatusCode,
		"bytes", n,
		"latency", time.Since(start).Round(time.Millisecond),
	)
}
