package tripbothttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"

	"tripbot/internal/models"
	"tripbot/utils"
)

type testLogger struct{}

func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}

type stubInbox struct {
	got  []string
	full bool
}

func (s *stubInbox) Submit(ctx context.Context, senderID, body string) error {
	if s.full {
		return models.ErrQueueFull
	}
	s.got = append(s.got, senderID+"|"+body)
	return nil
}

func (s *stubInbox) QueueDepth() int { return len(s.got) }

type stubAppender struct {
	drafts []models.TripDraft
	err    error
}

func (s *stubAppender) Append(ctx context.Context, d models.TripDraft) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.drafts = append(s.drafts, d)
	return "7", nil
}

type stubBridge struct{ connected bool }

func (b stubBridge) ServeWS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (b stubBridge) Connected() bool { return b.connected }

type fixture struct {
	handler http.Handler
	inbox   *stubInbox
	trips   *stubAppender
	bridge  string
	admin   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := utils.NewManager("test-secret")
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	bridgeToken, _ := tokens.NewJWT("gateway", utils.RoleBridge, 0)
	adminToken, _ := tokens.NewJWT("operator", utils.RoleAdmin, 0)

	f := &fixture{inbox: &stubInbox{}, trips: &stubAppender{}, bridge: bridgeToken, admin: adminToken}
	srv := NewServer(testLogger{}, f.inbox, f.trips, stubBridge{connected: true}, tokens)
	mux := pat.New()
	srv.RegisterRoutes(mux, alice.New())
	f.handler = mux
	return f
}

func (f *fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookQueuesMessages(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/webhook/messages", f.bridge,
		`{"from":"5511987654321@c.us","body":"4321","messages":[{"from":"123@lid","body":"1"},{"from":"","body":"x"}]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.inbox.got) != 2 || f.inbox.got[0] != "5511987654321@c.us|4321" || f.inbox.got[1] != "123@lid|1" {
		t.Fatalf("unexpected submissions %v", f.inbox.got)
	}
}

func TestWebhookRejectsMissingOrWrongToken(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(http.MethodPost, "/webhook/messages", "", `{"from":"a","body":"b"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/webhook/messages", "garbage", `{"from":"a","body":"b"}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
	if len(f.inbox.got) != 0 {
		t.Fatalf("unauthenticated messages must not be queued")
	}
}

func TestWebhookQueueFull(t *testing.T) {
	f := newFixture(t)
	f.inbox.full = true
	rec := f.do(http.MethodPost, "/webhook/messages", f.bridge, `{"from":"a@c.us","body":"1"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCreateTripRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	body := `{"passenger_name":"Ana","passenger_phone":"11987654321","date":"2025-03-10","time":"14:00"}`
	if rec := f.do(http.MethodPost, "/trips", f.bridge, body); rec.Code != http.StatusForbidden {
		t.Fatalf("bridge token must not create trips, got %d", rec.Code)
	}

	rec := f.do(http.MethodPost, "/trips", f.admin, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["id"] != "7" || len(f.trips.drafts) != 1 || f.trips.drafts[0].PassengerName != "Ana" {
		t.Fatalf("unexpected result %v %+v", resp, f.trips.drafts)
	}
}

func TestCreateTripValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/trips", f.admin, `{"passenger_name":"Ana","passenger_phone":"1","date":"10/03/2025","time":"14:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	f.trips.err = errors.New("boom")
	rec = f.do(http.MethodPost, "/trips", f.admin, `{"passenger_name":"Ana","passenger_phone":"1","date":"2025-03-10","time":"14:00"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 on store failure, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Status          string `json:"status"`
		BridgeConnected bool   `json:"bridge_connected"`
		QueueDepth      int    `json:"queue_depth"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || !resp.BridgeConnected || resp.QueueDepth != 0 {
		t.Fatalf("unexpected health %+v", resp)
	}
}

func TestBridgeTokenFromQuery(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/ws/bridge?token="+f.bridge, "", "")
	if rec.Code != http.StatusSwitchingProtocols {
		t.Fatalf("expected the bridge handler to run, got %d", rec.Code)
	}
}
