package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ptt-dispatch/internal/auth"
	"ptt-dispatch/internal/call"
	"ptt-dispatch/internal/config"
	"ptt-dispatch/internal/directory"
	"ptt-dispatch/internal/presence"
	"ptt-dispatch/internal/signal"

	"github.com/gin-gonic/gin"
)

type testAPI struct {
	r   *gin.Engine
	mgr *auth.Manager
	dir *directory.MemoryRepo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	dir := directory.NewMemoryRepo()
	dir.AddProfile(directory.Profile{ID: "alice", FullName: "Alice"})
	dir.AddProfile(directory.Profile{ID: "bob", FullName: "Bob"})

	presSvc := presence.NewService(presence.NewMemoryRepo(), dir)
	callRepo := call.NewMemoryRepo()
	callSvc := call.NewService(callRepo, presSvc, dir, nil, nil)
	sigSvc := signal.NewService(signal.NewMemoryRepo(), callRepo)

	h := Handlers{Auth: mgr, Presence: presSvc, Calls: callSvc, Signals: sigSvc}
	authMW := auth.RequireAccessToken(mgr)

	r := gin.New()
	r.HandleMethodNotAllowed = true
	v1 := r.Group("/v1")
	v1.POST("/auth/login", h.Login)
	protected := v1.Group("")
	protected.Use(authMW)
	{
		protected.POST("/calls/initiate", h.InitiateCall)
		protected.POST("/calls/update", h.UpdateCall)
		protected.GET("/calls/active", h.ActiveCall)
		protected.GET("/calls/history", h.CallHistory)
		protected.GET("/presence", h.GetPresence)
		protected.POST("/presence/update", h.UpdatePresence)
		protected.POST("/presence/heartbeat", h.Heartbeat)
		protected.POST("/signals", h.SendSignal)
		protected.GET("/signals", h.PollSignals)
	}

	return &testAPI{r: r, mgr: mgr, dir: dir}
}

func (a *testAPI) token(t *testing.T, userID string) string {
	t.Helper()
	pair, err := a.mgr.IssuePair(time.Now(), userID, "field_unit")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return pair.AccessToken
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestAuth_MissingAndGarbageTokens(t *testing.T) {
	api := newTestAPI(t)

	if w := api.do(t, http.MethodGet, "/v1/calls/active", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/v1/calls/active", "not.a.jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d, want 401", w.Code)
	}
}

func TestLogin_IssuesUsableToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"user_id": "alice", "role": "dispatcher"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.AccessToken == "" {
		t.Fatalf("no access token in %s", w.Body.String())
	}

	if w := api.do(t, http.MethodGet, "/v1/calls/active", resp.AccessToken, nil); w.Code != http.StatusOK {
		t.Fatalf("issued token rejected: %d %s", w.Code, w.Body.String())
	}
}

func TestInitiateCall_Validation(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "alice")

	if w := api.do(t, http.MethodPost, "/v1/calls/initiate", tok, gin.H{}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing calleeId: status = %d, want 400", w.Code)
	}
	if w := api.do(t, http.MethodPost, "/v1/calls/initiate", tok, gin.H{"calleeId": "alice"}); w.Code != http.StatusBadRequest {
		t.Fatalf("self call: status = %d, want 400", w.Code)
	}
	if w := api.do(t, http.MethodPost, "/v1/calls/initiate", tok, gin.H{"calleeId": "ghost"}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown callee: status = %d, want 404", w.Code)
	}
}

func TestCallFlow_OverHTTP(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, "alice")
	bob := api.token(t, "bob")

	w := api.do(t, http.MethodPost, "/v1/calls/initiate", alice, gin.H{"calleeId": "bob"})
	if w.Code != http.StatusOK {
		t.Fatalf("initiate: %d %s", w.Code, w.Body.String())
	}
	var initResp struct {
		Call struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"call"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &initResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if initResp.Call.Status != "ringing" || initResp.Call.ID == "" {
		t.Fatalf("unexpected call: %+v", initResp.Call)
	}
	callID := initResp.Call.ID

	// A ringing call is visible as active to the callee.
	w = api.do(t, http.MethodGet, "/v1/calls/active", bob, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("active: %d", w.Code)
	}
	if body := decode(t, w); string(body["call"]) == "null" {
		t.Fatalf("expected ringing call in active view")
	}

	// Caller may not accept its own call.
	w = api.do(t, http.MethodPost, "/v1/calls/update", alice, gin.H{"callId": callID, "action": "accept"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("caller accept: status = %d, want 403", w.Code)
	}

	w = api.do(t, http.MethodPost, "/v1/calls/update", bob, gin.H{"callId": callID, "action": "accept"})
	if w.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", w.Code, w.Body.String())
	}

	// A second accept conflicts with the active state.
	w = api.do(t, http.MethodPost, "/v1/calls/update", bob, gin.H{"callId": callID, "action": "accept"})
	if w.Code != http.StatusConflict {
		t.Fatalf("double accept: status = %d, want 409", w.Code)
	}

	w = api.do(t, http.MethodPost, "/v1/calls/update", alice, gin.H{"callId": callID, "action": "end"})
	if w.Code != http.StatusOK {
		t.Fatalf("end: %d %s", w.Code, w.Body.String())
	}

	// No active call remains; history has one ended row.
	w = api.do(t, http.MethodGet, "/v1/calls/active", alice, nil)
	if body := decode(t, w); string(body["call"]) != "null" {
		t.Fatalf("expected null active call, got %s", body["call"])
	}
	w = api.do(t, http.MethodGet, "/v1/calls/history", alice, nil)
	var histResp struct {
		Calls []struct {
			Status string `json:"status"`
		} `json:"calls"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &histResp); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(histResp.Calls) != 1 || histResp.Calls[0].Status != "ended" {
		t.Fatalf("unexpected history: %+v", histResp.Calls)
	}
}

func TestCallHistory_RejectsBadLimit(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "alice")

	if w := api.do(t, http.MethodGet, "/v1/calls/history?limit=0", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("limit=0: status = %d, want 400", w.Code)
	}
	if w := api.do(t, http.MethodGet, "/v1/calls/history?limit=abc", tok, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("limit=abc: status = %d, want 400", w.Code)
	}
}

func TestPresence_UpdateAndNullForUnknown(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "alice")

	if w := api.do(t, http.MethodPost, "/v1/presence/update", tok, gin.H{"status": "levitating"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad status: status = %d, want 400", w.Code)
	}
	if w := api.do(t, http.MethodPost, "/v1/presence/update", tok, gin.H{"status": "busy"}); w.Code != http.StatusOK {
		t.Fatalf("update: status = %d", w.Code)
	}

	w := api.do(t, http.MethodGet, "/v1/presence", tok, nil)
	var resp struct {
		Presence struct {
			Status string `json:"status"`
		} `json:"presence"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Presence.Status != "busy" {
		t.Fatalf("status = %q, want busy", resp.Presence.Status)
	}

	// Unknown user polls as null, not 404.
	w = api.do(t, http.MethodGet, "/v1/presence?userId=ghost", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("ghost lookup: status = %d", w.Code)
	}
	if body := decode(t, w); string(body["presence"]) != "null" {
		t.Fatalf("expected null presence, got %s", body["presence"])
	}
}

func TestSignals_EndToEnd(t *testing.T) {
	api := newTestAPI(t)
	alice := api.token(t, "alice")
	bob := api.token(t, "bob")

	w := api.do(t, http.MethodPost, "/v1/calls/initiate", alice, gin.H{"calleeId": "bob"})
	var initResp struct {
		Call struct {
			ID string `json:"id"`
		} `json:"call"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &initResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	callID := initResp.Call.ID

	w = api.do(t, http.MethodPost, "/v1/signals", alice, gin.H{
		"callId":     callID,
		"toUserId":   "bob",
		"signalType": "offer",
		"signalData": gin.H{"sdp": "v=0"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}

	// Sender must be a participant.
	mallory := api.token(t, "mallory")
	w = api.do(t, http.MethodPost, "/v1/signals", mallory, gin.H{
		"callId":     callID,
		"toUserId":   "bob",
		"signalType": "offer",
		"signalData": gin.H{"sdp": "v=0"},
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("outsider send: status = %d, want 403", w.Code)
	}

	w = api.do(t, http.MethodGet, "/v1/signals?callId="+callID, bob, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("poll: %d", w.Code)
	}
	var pollResp struct {
		Signals []struct {
			Type string `json:"signal_type"`
			Seq  int64  `json:"seq"`
		} `json:"signals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pollResp); err != nil {
		t.Fatalf("decode poll: %v", err)
	}
	if len(pollResp.Signals) != 1 || pollResp.Signals[0].Type != "offer" {
		t.Fatalf("unexpected mailbox: %+v", pollResp.Signals)
	}

	if w := api.do(t, http.MethodGet, "/v1/signals?callId="+callID+"&since=not-a-time", bob, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad since: status = %d, want 400", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	api := newTestAPI(t)
	tok := api.token(t, "alice")

	if w := api.do(t, http.MethodGet, "/v1/calls/initiate", tok, nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}
