// internal/bridge/server.go
package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"insert-coin-bot/internal/logging"
	"insert-coin-bot/internal/models"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const msgSent = "Message sent successfully!"

type ChannelLookup interface {
	ChannelForMatch(ctx context.Context, matchID int64) (string, error)
}

type Relay interface {
	Send(ctx context.Context, channelID, content string) error
}

// Server relays messages from the match frontpage into match channels.
type Server struct {
	lookup  ChannelLookup
	relay   Relay
	timeout time.Duration
	logger  *zap.Logger
}

func NewServer(lookup ChannelLookup, relay Relay, timeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		lookup:  lookup,
		relay:   relay,
		timeout: timeout,
		logger:  logger.With(zap.String("feature", "bridge")),
	}
}

func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(s.logRequests)
	router.Use(chiMiddleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.Get("/healthz", s.healthz)
	router.Post("/send-message", s.sendMessage)

	return router
}

type sendMessageRequest struct {
	MatchID json.Number `json:"match_id"`
	Message string      `json:"message"`
}

func (req *sendMessageRequest) Bind(r *http.Request) error {
	if req.MatchID == "" {
		return errors.New("match_id is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errors.New("message is required")
	}
	if _, err := req.MatchID.Int64(); err != nil {
		return errors.New("match_id must be an integer")
	}
	return nil
}

type messageResponse struct {
	Message string `json:"message"`
}

func (messageResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

type errResponse struct {
	HTTPStatusCode int    `json:"-"`
	Error          string `json:"error"`
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func errorResponse(status int, msg string) render.Renderer {
	return &errResponse{HTTPStatusCode: status, Error: msg}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, messageResponse{Message: "ok"}) // nolint: errcheck
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With(zap.String("request_id", chiMiddleware.GetReqID(r.Context())))

	var req sendMessageRequest
	if err := render.Bind(r, &req); err != nil {
		render.Render(w, r, errorResponse(http.StatusBadRequest, err.Error())) // nolint: errcheck
		return
	}
	matchID, _ := req.MatchID.Int64()
	logger = logger.With(zap.Int64("match_id", matchID))

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	channelID, err := s.lookup.ChannelForMatch(ctx, matchID)
	if errors.Is(err, models.ErrMatchNotFound) {
		render.Render(w, r, errorResponse(http.StatusNotFound, "Match not found")) // nolint: errcheck
		return
	}
	if err != nil {
		s.fail(logger, errors.Wrap(err, "look up match channel"))
		render.Render(w, r, errorResponse(http.StatusInternalServerError, "Failed to look up match")) // nolint: errcheck
		return
	}

	if err := s.relay.Send(ctx, channelID, req.Message); err != nil {
		s.fail(logger, errors.Wrap(err, "relay message"))
		render.Render(w, r, errorResponse(http.StatusInternalServerError, "Failed to send message")) // nolint: errcheck
		return
	}

	logger.Info("message relayed", zap.String("channel_id", channelID))
	render.Render(w, r, messageResponse{Message: msgSent}) // nolint: errcheck
}

func (s *Server) fail(logger *zap.Logger, err error) {
	logger.Error("bridge request failed", zap.Error(err))
	logging.CaptureError(err, map[string]string{"feature": "bridge"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
