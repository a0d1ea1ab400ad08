package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worldcup-betting/internal/config"
	"worldcup-betting/internal/model"
	"worldcup-betting/internal/service"
	"worldcup-betting/internal/worker"
)

const (
	cookieName   = "wc_session"
	validSession = "sess-ok"
)

type fakeAccounts struct {
	user      *model.User
	loggedOut string
	loginErr  error
}

func (f *fakeAccounts) Login(ctx context.Context, credential string) (*service.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &service.LoginResult{
		User:    f.user,
		Session: &model.Session{ID: validSession, UserID: f.user.ID, ExpiresAt: time.Now().Add(time.Hour)},
		Created: true,
	}, nil
}

func (f *fakeAccounts) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID != validSession {
		return nil, service.ErrUnauthenticated
	}
	return f.user, nil
}

func (f *fakeAccounts) Logout(ctx context.Context, sessionID string) error {
	f.loggedOut = sessionID
	return nil
}

type fakeWagers struct {
	err    error
	userID string
}

func (f *fakeWagers) PlaceBet(ctx context.Context, userID, matchID, teamCode string) (service.PlaceResult, error) {
	f.userID = userID
	if f.err != nil {
		return "", f.err
	}
	return service.PlaceCreated, nil
}

type fakeSettler struct{ matchID string }

func (f *fakeSettler) Settle(ctx context.Context, matchID string) (*service.SettlementOutcome, error) {
	f.matchID = matchID
	return &service.SettlementOutcome{MatchID: matchID, Settled: true}, nil
}

type fakeSyncer struct{ err error }

func (f *fakeSyncer) Trigger(ctx context.Context) (*service.SyncReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.SyncReport{Received: 2}, nil
}

type fakeBootstrap struct{}

func (fakeBootstrap) Bootstrap(ctx context.Context, user *model.User) (*service.Bootstrap, error) {
	b := &service.Bootstrap{Auth: user != nil}
	if user != nil {
		b.User = &service.UserView{ID: user.ID, Name: user.Name}
	}
	return b, nil
}

type fakeHistory struct{}

func (fakeHistory) History(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	return nil, nil
}

type fakeRankings struct{ limit int }

func (f *fakeRankings) GetLeaderboard(ctx context.Context, limit int) (*service.Leaderboard, error) {
	f.limit = limit
	return &service.Leaderboard{}, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(ctx context.Context) error { return f.err }

type fixture struct {
	accounts *fakeAccounts
	wagers   *fakeWagers
	settler  *fakeSettler
	syncer   *fakeSyncer
	rankings *fakeRankings
	handler  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: &fakeAccounts{user: &model.User{ID: "u1", Name: "Asha"}},
		wagers:   &fakeWagers{},
		settler:  &fakeSettler{},
		syncer:   &fakeSyncer{},
		rankings: &fakeRankings{},
	}
	cfg := &config.Config{
		Auth:  config.AuthConfig{SessionCookie: cookieName, SessionTTL: time.Hour},
		Admin: config.AdminConfig{UserIDs: []string{"admin"}},
	}
	api := NewAPI(Deps{
		Accounts:  f.accounts,
		Wagers:    f.wagers,
		Settler:   f.settler,
		Syncer:    f.syncer,
		Bootstrap: fakeBootstrap{},
		History:   fakeHistory{},
		Rankings:  f.rankings,
		Health:    fakeHealth{},
	}, cfg)
	f.handler = api.Router()
	return f
}

func (f *fixture) do(method, path, body, session string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: session})
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])
}

func TestBootstrap_AnonymousAndSignedIn(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/bootstrap", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["auth"])

	rec = f.do(http.MethodGet, "/api/bootstrap", "", "stale")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["auth"])

	rec = f.do(http.MethodGet, "/api/bootstrap", "", validSession)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["auth"])
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/auth/google", `{"credential":"tok"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.Equal(t, validSession, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
	assert.Positive(t, cookies[0].MaxAge)
}

func TestLogin_Errors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/google", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.accounts.loginErr = errors.Join(service.ErrUnauthenticated, errors.New("bad token"))
	rec = f.do(http.MethodPost, "/api/auth/google", `{"credential":"tok"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/logout", "", validSession)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, validSession, f.accounts.loggedOut)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestPlaceBet(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/bets", `{"matchId":"m1","teamCode":"IND"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Login required", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/api/bets", `{"matchId":"m1"}`, validSession)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "matchId and teamCode required", decode(t, rec)["error"])

	rec = f.do(http.MethodPost, "/api/bets", `{"matchId":"m1","teamCode":"IND"}`, validSession)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, string(service.PlaceCreated), body["mode"])
	assert.Equal(t, "u1", f.wagers.userID)
}

func TestPlaceBet_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"locked", service.ErrLocked, http.StatusConflict},
		{"invalid team", service.ErrInvalidSelection, http.StatusBadRequest},
		{"conflict", service.ErrConflict, http.StatusConflict},
		{"storage", service.ErrStorage, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.wagers.err = tt.err
			rec := f.do(http.MethodPost, "/api/bets", `{"matchId":"m1","teamCode":"IND"}`, validSession)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestStorageErrorsAreNotLeaked(t *testing.T) {
	f := newFixture(t)
	f.wagers.err = errors.Join(service.ErrStorage, errors.New("dial tcp 10.0.0.1:5432"))
	rec := f.do(http.MethodPost, "/api/bets", `{"matchId":"m1","teamCode":"IND"}`, validSession)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
}

func TestSettle_AdminOnly(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/admin/matches/m1/settle", "", validSession)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.settler.matchID)

	f.accounts.user = &model.User{ID: "admin"}
	rec = f.do(http.MethodPost, "/api/admin/matches/m1/settle", "", validSession)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m1", f.settler.matchID)
	assert.Equal(t, true, decode(t, rec)["settled"])
}

func TestSync(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/sync", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["ok"])

	f.syncer.err = worker.ErrAlreadyRunning
	rec = f.do(http.MethodPost, "/api/sync", "", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransactions_EmptyListNotNull(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/me/transactions", "", validSession)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"transactions":[]}`, rec.Body.String())
}

func TestLeaderboard_PassesLimit(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/leaderboard?limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, f.rankings.limit)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodGet, "/api/health", "", "")
	rec := f.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "worldcup_betting_http_requests_total")
}
