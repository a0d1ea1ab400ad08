package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"worldcup-betting/internal/model"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := map[string]any{"ok": true, "service": "world-cup-betting"}
	if a.deps.Health != nil {
		if err := a.deps.Health.HealthCheck(ctx); err != nil {
			log.Warn().Err(err).Msg("Health check failed")
			body["ok"] = false
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) bootstrap(w http.ResponseWriter, r *http.Request) {
	out, err := a.deps.Bootstrap.Bootstrap(r.Context(), userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type loginRequest struct {
	Credential string `json:"credential"`
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil || req.Credential == "" {
		badRequest(w, "credential required")
		return
	}

	res, err := a.deps.Accounts.Login(r.Context(), req.Credential)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.Auth.SessionCookie,
		Value:    res.Session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  res.Session.ExpiresAt,
		MaxAge:   int(time.Until(res.Session.ExpiresAt).Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "created": res.Created})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(a.cfg.Auth.SessionCookie); err == nil {
		if err := a.deps.Accounts.Logout(r.Context(), cookie.Value); err != nil {
			writeError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.Auth.SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type betRequest struct {
	MatchID  string `json:"matchId"`
	TeamCode string `json:"teamCode"`
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := decodeBody(w, r, &req); err != nil || req.MatchID == "" || req.TeamCode == "" {
		badRequest(w, "matchId and teamCode required")
		return
	}

	user := userFrom(r.Context())
	mode, err := a.deps.Wagers.PlaceBet(r.Context(), user.ID, req.MatchID, req.TeamCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "mode": mode})
}

func (a *API) sync(w http.ResponseWriter, r *http.Request) {
	report, err := a.deps.Syncer.Trigger(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": report})
}

func (a *API) settle(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	outcome, err := a.deps.Settler.Settle(r.Context(), matchID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.Info().
		Str("match_id", matchID).
		Str("admin_id", userFrom(r.Context()).ID).
		Bool("settled", outcome.Settled).
		Msg("Manual settlement")
	writeJSON(w, http.StatusOK, outcome)
}

func (a *API) transactions(w http.ResponseWriter, r *http.Request) {
	entries, err := a.deps.History.History(r.Context(), userFrom(r.Context()).ID, queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []*model.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": entries})
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := a.deps.Rankings.GetLeaderboard(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}
