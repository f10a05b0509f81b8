package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/netutil"
)

// SyncRequest is the POST body for /sync.
type SyncRequest struct {
	TabID   int    `json:"tab_id"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	InCall  bool   `json:"in_call"`
	Muted   *bool  `json:"muted"`
	Visible bool   `json:"visible"`
}

// SyncResponse is the reply to /sync.
type SyncResponse struct {
	Ack        bool      `json:"ack"`
	Commands   []Command `json:"commands"`
	NextPollMs int       `json:"next_poll_ms"`
	ServerTime string    `json:"server_time"`
}

// TabClosedRequest is the POST body for /tab-closed.
type TabClosedRequest struct {
	TabID int `json:"tab_id"`
}

// GRPCWeb is the subset of a grpc-web wrapper the bridge routes to.
type GRPCWeb interface {
	http.Handler
	IsGrpcWebRequest(r *http.Request) bool
	IsAcceptableGrpcCorsRequest(r *http.Request) bool
}

// Handler returns the HTTP handler for observers. grpc-web requests are
// routed to web when it is non-nil.
func (b *Bridge) Handler(web GRPCWeb) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", b.handleSync)
	mux.HandleFunc("/tab-closed", b.handleTabClosed)
	mux.HandleFunc("/health", b.handleHealth)

	api := corsMiddleware(mux)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// DNS rebinding guard for every route, grpc-web included.
		if !isAllowedHost(r.Host) {
			http.Error(w, "Invalid Host header", http.StatusForbidden)
			return
		}
		if web != nil && (web.IsGrpcWebRequest(r) || web.IsAcceptableGrpcCorsRequest(r)) {
			web.ServeHTTP(w, r)
			return
		}
		api.ServeHTTP(w, r)
	})
}

func (b *Bridge) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	var req SyncRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}

	commands := b.Observe(Report{
		TabID:   req.TabID,
		URL:     req.URL,
		Title:   req.Title,
		InCall:  req.InCall,
		Muted:   req.Muted,
		Visible: req.Visible,
	})
	if commands == nil {
		commands = []Command{}
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Ack:        true,
		Commands:   commands,
		NextPollMs: int(b.cfg.PollHint / time.Millisecond),
		ServerTime: b.now().UTC().Format(time.RFC3339Nano),
	})
}

func (b *Bridge) handleTabClosed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
		return
	}
	var req TabClosedRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}
	b.TabClosed(req.TabID)
	writeJSON(w, http.StatusOK, map[string]bool{"ack": true})
}

func (b *Bridge) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := b.Stats()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"tabs":     stats.Tabs,
		"sessions": stats.Sessions,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[bridge] Failed to write response: %v", err)
	}
}

// corsMiddleware only admits loopback hosts, and origins from browser
// extensions or the supported call sites.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAllowedHost(r.Host) {
			http.Error(w, "Invalid Host header", http.StatusForbidden)
			return
		}
		origin := r.Header.Get("Origin")
		if origin != "" && !isAllowedOrigin(origin) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden: invalid origin"})
			return
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAllowedHost(host string) bool {
	if host == "" {
		return true
	}
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	hostname = strings.TrimSuffix(strings.TrimPrefix(hostname, "["), "]")
	return hostname == "localhost" || hostname == "127.0.0.1" || hostname == "::1"
}

func isAllowedOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "chrome-extension", "moz-extension", "safari-web-extension":
		return true
	case "https":
		host := strings.ToLower(u.Hostname())
		return host == "meet.google.com" || isTeamsHost(host)
	}
	return false
}

// Serve listens on addr and serves h until ctx is cancelled. At most
// maxConns connections are accepted at once; 0 means unlimited.
func Serve(ctx context.Context, addr string, maxConns int, h http.Handler) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("[bridge] Listening on %s", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("bridge server failed: %w", err)
	}
	return nil
}
