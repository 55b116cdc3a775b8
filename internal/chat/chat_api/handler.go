package chat_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"storefront-bot/internal/chat"
	"storefront-bot/internal/logger"
	"storefront-bot/internal/utils"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	Bot    *chat.Bot
	DB     Pinger
	Logger *logger.Logger
}

func NewHandler(bot *chat.Bot, db Pinger, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Handler{Bot: bot, DB: db, Logger: log}
}

type messageRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type callbackRequest struct {
	UserID int64  `json:"user_id"`
	Data   string `json:"data"`
}

// Routes mounts the chat endpoints and the health check.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Health)
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/message", h.Message)
		r.Post("/callback", h.Callback)
	})
	return r
}

func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	var body messageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == 0 {
		h.badRequest(w, "Message", "body must be {\"user_id\": int, \"text\": string}")
		return
	}
	req, err := chat.ParseMessage(body.Text)
	h.handle(w, r, "Message", body.UserID, req, err)
}

func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	var body callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == 0 {
		h.badRequest(w, "Callback", "body must be {\"user_id\": int, \"data\": string}")
		return
	}
	req, err := chat.ParseCallback(body.Data)
	h.handle(w, r, "Callback", body.UserID, req, err)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, op string, userID int64, req chat.Request, parseErr error) {
	if parseErr != nil {
		h.Logger.Debug("API", fmt.Sprintf("%s: user %d: %v", op, userID, parseErr))
		h.write(w, op, http.StatusBadRequest, utils.ErrorResponse("Request rejected", parseErr.Error(), chat.ErrorView(parseErr)))
		return
	}

	reply, err := h.Bot.Handle(r.Context(), userID, req)
	if err != nil {
		status := chat.StatusFor(err)
		h.write(w, op, status, utils.ErrorResponse("Request rejected", chat.ErrorText(err), reply))
		return
	}
	h.write(w, op, http.StatusOK, utils.SuccessResponse("OK", reply))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		h.Logger.Error("API", fmt.Sprintf("Health: database unreachable: %v", err))
		h.write(w, "Health", http.StatusServiceUnavailable, utils.ErrorResponse("unhealthy", "database unreachable", nil))
		return
	}
	h.write(w, "Health", http.StatusOK, utils.SuccessResponse("ok", nil))
}

func (h *Handler) badRequest(w http.ResponseWriter, op, msg string) {
	h.Logger.Warn("API", fmt.Sprintf("%s: invalid body", op))
	h.write(w, op, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", msg, nil))
}

func (h *Handler) write(w http.ResponseWriter, op string, status int, resp utils.APIResponse) {
	if err := utils.WriteJSON(w, status, resp); err != nil {
		h.Logger.Error("API", fmt.Sprintf("%s: failed to encode response: %v", op, err))
	}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, fmt.Sprintf("%d", ww.Status()), time.Since(start).String())
	})
}
