package tripbothttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"tripbot/internal/models"
	"tripbot/utils"
)

// Logger is the minimal logger the handlers need.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Inbox accepts inbound chat messages for asynchronous processing.
type Inbox interface {
	Submit(ctx context.Context, senderID, body string) error
	QueueDepth() int
}

// TripAppender creates new trip records.
type TripAppender interface {
	Append(ctx context.Context, d models.TripDraft) (string, error)
}

// Bridge is the gateway WebSocket endpoint.
type Bridge interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Connected() bool
}

// Authorizer validates bearer tokens.
type Authorizer interface {
	Authorize(token string, roles ...string) (*utils.Claims, error)
}

// Server handles HTTP endpoints for the trip bot.
type Server struct {
	logger Logger
	inbox  Inbox
	trips  TripAppender
	bridge Bridge
	auth   Authorizer
}

// NewServer constructs Server.
func NewServer(logger Logger, inbox Inbox, trips TripAppender, bridge Bridge, auth Authorizer) *Server {
	return &Server{logger: logger, inbox: inbox, trips: trips, bridge: bridge, auth: auth}
}

// RegisterRoutes registers the bot routes on mux behind the given base chain.
func (s *Server) RegisterRoutes(mux *pat.PatternServeMux, base alice.Chain) {
	bridgeAuth := base.Append(s.RequireRole(utils.RoleBridge, utils.RoleAdmin))
	adminAuth := base.Append(s.RequireRole(utils.RoleAdmin))

	mux.Get("/healthz", base.ThenFunc(s.handleHealth))
	mux.Post("/webhook/messages", bridgeAuth.ThenFunc(s.handleWebhook))
	mux.Post("/trips", adminAuth.ThenFunc(s.handleCreateTrip))
	mux.Get("/ws/bridge", bridgeAuth.ThenFunc(s.bridge.ServeWS))
}

// RequireRole rejects requests without a valid token of one of roles. The
// token is read from the Authorization header, or the "token" query parameter
// for WebSocket clients that cannot set headers.
func (s *Server) RequireRole(roles ...string) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "missing token")
				return
			}
			claims, err := s.auth.Authorize(token, roles...)
			if err != nil {
				if errors.Is(err, utils.ErrTokenRole) {
					writeError(w, http.StatusForbidden, "forbidden")
					return
				}
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			s.logger.Infof("auth: %s as %s", claims.Subject, claims.Role)
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

type inboundMessage struct {
	From string `json:"from"`
	Body string `json:"body"`
}

type webhookPayload struct {
	inboundMessage
	Messages []inboundMessage `json:"messages"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req webhookPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	msgs := req.Messages
	if req.From != "" {
		msgs = append([]inboundMessage{req.inboundMessage}, msgs...)
	}
	if len(msgs) == 0 {
		writeError(w, http.StatusBadRequest, "no messages")
		return
	}

	accepted := 0
	for _, m := range msgs {
		if strings.TrimSpace(m.From) == "" {
			continue
		}
		if err := s.inbox.Submit(r.Context(), m.From, m.Body); err != nil {
			if errors.Is(err, models.ErrQueueFull) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "queue full", "accepted": accepted})
				return
			}
			s.logger.Errorf("webhook: submit from %s: %v", m.From, err)
			writeError(w, http.StatusInternalServerError, "submit failed")
			return
		}
		accepted++
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{"accepted": accepted})
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var draft models.TripDraft
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := draft.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	id, err := s.trips.Append(ctx, draft)
	if err != nil {
		s.logger.Errorf("create trip: %v", err)
		writeError(w, http.StatusBadGateway, "store unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": id})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	connected := s.bridge.Connected()
	status := "ok"
	if !connected {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           status,
		"bridge_connected": connected,
		"queue_depth":      s.inbox.QueueDepth(),
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
