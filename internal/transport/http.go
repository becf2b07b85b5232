package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/BillStark001/meetscript/internal/auth"
	"github.com/BillStark001/meetscript/internal/codes"
	"github.com/BillStark001/meetscript/internal/meeting"
	"github.com/BillStark001/meetscript/internal/models"
	"github.com/BillStark001/meetscript/internal/observability/logging"
	"github.com/BillStark001/meetscript/internal/storage"
)

// API serves the session-control HTTP surface.
type API struct {
	auth      *auth.Authenticator
	scheduler *meeting.Scheduler
	store     storage.Store
	ws        *WSHandler
	log       zerolog.Logger
}

// NewAPI creates the HTTP API over the scheduler and record store.
func NewAPI(authenticator *auth.Authenticator, scheduler *meeting.Scheduler, store storage.Store, ws *WSHandler) *API {
	return &API{
		auth:      authenticator,
		scheduler: scheduler,
		store:     store,
		ws:        ws,
		log:       logging.WithComponent("http"),
	}
}

// Router constructs the service router: session control and record queries
// under /api/meet, streaming channels under /ws/meet.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/api/meet", func(r chi.Router) {
		r.Use(a.requireScope(auth.ScopeControl))
		r.Post("/init", a.handleInit)
		r.Post("/close", a.handleClose)
		r.Get("/ws_request", a.handleWSRequest)
		r.Get("/records", a.handleRecords)
	})

	r.Get("/ws/meet/provide", a.ws.Provide)
	r.Get("/ws/meet/consume", a.ws.Observe)

	return r
}

type ctxKey int

const claimsKey ctxKey = 0

// requireScope admits requests carrying a valid bearer token of the wanted
// scope and stashes the claims in the request context.
func (a *API) requireScope(scope auth.Scope) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			claims, err := a.auth.Verify(token, scope)
			if err != nil {
				code := codes.ErrAuthFailed
				if errors.Is(err, auth.ErrWrongScope) {
					code = codes.ErrWrongTokenType
				}
				writeEnvelope(w, code.HTTPStatus(), codes.Of(code))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func writeEnvelope(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type initRequest struct {
	Session string     `json:"session,omitempty"`
	Name    string     `json:"name,omitempty"`
	Time    *time.Time `json:"time,omitempty"`
}

func (a *API) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if r.Body != nil {
		// An empty or malformed body falls back to defaults.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	startedAt := time.Time{}
	if req.Time != nil {
		startedAt = *req.Time
	}

	sess, err := a.scheduler.Init(r.Context(), req.Session, req.Name, startedAt)
	if err != nil {
		if errors.Is(err, meeting.ErrMeetingAlreadyStarted) {
			writeEnvelope(w, codes.ErrMeetingAlreadyStarted.HTTPStatus(), codes.Of(codes.ErrMeetingAlreadyStarted))
			return
		}
		a.log.Error().Err(err).Msg("Init failed")
		writeEnvelope(w, http.StatusInternalServerError, codes.Envelope{Code: codes.ErrSessionDB, Detail: err.Error()})
		return
	}

	writeEnvelope(w, http.StatusOK, struct {
		codes.Envelope
		Session string `json:"session"`
	}{codes.Of(codes.Done), sess.ID})
}

func (a *API) handleClose(w http.ResponseWriter, r *http.Request) {
	if err := a.scheduler.Close(); err != nil {
		if errors.Is(err, meeting.ErrMeetingNotStarted) {
			writeEnvelope(w, codes.ErrMeetingNotStarted.HTTPStatus(), codes.Of(codes.ErrMeetingNotStarted))
			return
		}
		a.log.Error().Err(err).Msg("Close failed")
		writeEnvelope(w, http.StatusInternalServerError, codes.Envelope{Code: codes.ErrSessionDB, Detail: err.Error()})
		return
	}
	writeEnvelope(w, http.StatusOK, codes.Of(codes.Done))
}

// handleWSRequest issues a channel-scoped access token for the caller:
// provide scope with ?provider=true, consume scope otherwise.
func (a *API) handleWSRequest(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	scope := auth.ScopeConsume
	if provider, _ := strconv.ParseBool(r.URL.Query().Get("provider")); provider {
		scope = auth.ScopeProvide
	}

	token, err := a.auth.Issue(claims.Subject, scope)
	if err != nil {
		a.log.Error().Err(err).Msg("Token issue failed")
		writeEnvelope(w, http.StatusInternalServerError, codes.Envelope{Code: codes.ErrAuthFailed, Detail: err.Error()})
		return
	}

	writeEnvelope(w, http.StatusOK, struct {
		codes.Envelope
		AccessToken string `json:"accessToken"`
	}{codes.Of(codes.Done), token})
}

func (a *API) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	session := q.Get("session")
	if session == "" {
		if sess := a.scheduler.Active(); sess != nil {
			session = sess.ID
		}
	}
	if session == "" {
		writeEnvelope(w, codes.ErrMeetingNotStarted.HTTPStatus(), codes.Of(codes.ErrMeetingNotStarted))
		return
	}

	start, err := parseMillis(q.Get("start"), 0)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, codes.Envelope{Code: codes.ErrSessionDB, Detail: "invalid start"})
		return
	}
	end, err := parseMillis(q.Get("end"), 0)
	if err != nil {
		writeEnvelope(w, http.StatusBadRequest, codes.Envelope{Code: codes.ErrSessionDB, Detail: "invalid end"})
		return
	}

	records, err := a.store.FetchRecords(r.Context(), session, start, end, q.Get("lang"))
	if err != nil {
		a.log.Error().Err(err).Msg("Record fetch failed")
		writeEnvelope(w, codes.ErrSessionDB.HTTPStatus(), codes.Of(codes.ErrSessionDB))
		return
	}

	writeEnvelope(w, http.StatusOK, struct {
		codes.Envelope
		Session string               `json:"session"`
		Records []recordResponseItem `json:"records"`
	}{codes.Of(codes.Done), session, toRecordItems(records)})
}

type recordResponseItem struct {
	Timestamp    int64             `json:"timestamp"`
	Lang         string            `json:"lang"`
	Text         string            `json:"text"`
	Translations map[string]string `json:"translations,omitempty"`
}

func toRecordItems(records []models.MeetingRecord) []recordResponseItem {
	out := make([]recordResponseItem, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponseItem{
			Timestamp:    rec.Timestamp,
			Lang:         rec.Lang,
			Text:         rec.Text,
			Translations: rec.Translations,
		})
	}
	return out
}

func parseMillis(raw string, fallback int64) (int64, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
