// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/puritysb/yomilingo/internal/metrics"
	"github.com/puritysb/yomilingo/internal/orchestrator"
	"github.com/puritysb/yomilingo/internal/trace"
	"github.com/puritysb/yomilingo/internal/track"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type FrameMessage struct {
	Type         string              `json:"type"`
	Observations []track.Observation `json:"observations"`
	TraceID      string              `json:"trace_id,omitempty"`
}

type ModeMessage struct {
	Type string `json:"type"`
	Mode string `json:"mode"`
}

type SceneMessage struct {
	Type       string  `json:"type"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

type TrackedMessage struct {
	Type    string           `json:"type"`
	Tracked []track.Snapshot `json:"tracked"`
}

type StatusMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	orch       *orchestrator.Orchestrator
	metrics    *metrics.Metrics
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server.
func New(orch *orchestrator.Orchestrator, m *metrics.Metrics) *Server {
	s := &Server{
		orch:       orch,
		metrics:    m,
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	// Push tracked-set updates to every connected client
	go s.broadcastTracked()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/frame", s.handleFrame)
	mux.HandleFunc("POST /api/scene", s.handleScene)
	mux.HandleFunc("POST /api/mode", s.handleMode)
	mux.HandleFunc("POST /api/clear", s.handleClear)
	mux.HandleFunc("GET /api/tracked", s.handleTracked)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ActiveConnections.Add(1)
	}

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.ActiveConnections.Add(^uint64(0))
		}
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "frame":
			var frame FrameMessage
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			ctx := baseCtx
			if frame.TraceID != "" {
				tc := trace.NewChild(trace.Context{TraceID: frame.TraceID})
				ctx = trace.WithContext(ctx, tc)
			} else {
				ctx, _ = trace.EnsureContext(ctx)
			}
			s.handleWSFrame(ctx, conn, frame.Observations)
		case "scene":
			var scene SceneMessage
			if err := json.Unmarshal(msg, &scene); err != nil {
				continue
			}
			s.orch.SceneChange(scene.Multiplier)
			_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Status: "scene_change"})
		case "clear":
			s.orch.Clear()
			_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Status: "cleared"})
		case "mode":
			var mode ModeMessage
			if err := json.Unmarshal(msg, &mode); err != nil {
				continue
			}
			m := s.orch.SetMode(mode.Mode)
			_ = wsjson.Write(baseCtx, conn, StatusMessage{Type: "status", Status: "mode_" + m.String()})
		}
	}
}

func (s *Server) handleWSFrame(ctx context.Context, conn *websocket.Conn, observations []track.Observation) {
	ctx, span := trace.StartSpan(ctx, "handle_frame")
	defer span.End()

	snaps, stats := s.orch.ProcessFrame(observations)
	span.SetAttr("observations", stats.Observations)
	span.SetAttr("tracked", len(snaps))

	if err := wsjson.Write(ctx, conn, TrackedMessage{Type: "tracked", Tracked: snaps}); err != nil {
		trace.Logger(ctx).Debug("websocket write error", "error", err)
	}
}

// broadcastTracked pushes orchestrator snapshots to all connections, so
// clients see async translation results without waiting for the next frame.
func (s *Server) broadcastTracked() {
	for snaps := range s.orch.Events() {
		msg := TrackedMessage{Type: "tracked", Tracked: snaps}

		s.mu.RLock()
		for conn := range s.conns {
			go func(c *websocket.Conn) {
				_ = wsjson.Write(context.Background(), c, msg)
			}(conn)
		}
		s.mu.RUnlock()
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Observations []track.Observation `json:"observations"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid frame payload", http.StatusBadRequest)
		return
	}

	snaps, stats := s.orch.ProcessFrame(req.Observations)
	writeJSON(w, map[string]any{"tracked": snaps, "stats": stats})
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Multiplier float64 `json:"multiplier"`
	}
	// The body is optional; a bare POST is a plain transition signal.
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.orch.SceneChange(req.Multiplier)
	writeJSON(w, map[string]string{"status": "scene_change"})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid mode payload", http.StatusBadRequest)
		return
	}

	m := s.orch.SetMode(req.Mode)
	writeJSON(w, map[string]string{"mode": m.String()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.orch.Clear()
	writeJSON(w, map[string]string{"status": "cleared"})
}

func (s *Server) handleTracked(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"tracked": s.orch.Snapshot()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode error", "error", err)
	}
}
