package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prepsio/testline-backend/internal/middleware"
	"github.com/prepsio/testline-backend/internal/model"
	"github.com/prepsio/testline-backend/internal/service"
	ws "github.com/prepsio/testline-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the test session over WebSocket: transitions in, state
// and countdown ticks out.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/tests/:test_id/stream?token=...
// Real-time session channel. The server pushes the countdown every second
// and fires the auto-finalize exactly once when it hits zero.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid test ID"})
		return
	}

	rawConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(rawConn)
	defer conn.Close()

	userID := claims.UserID
	wsLog := h.log.With().
		Int("user_id", userID).
		Str("test_id", testID.String()).
		Logger()

	// The connection requires an open session; connecting is not opening.
	state, err := h.sessionService.GetState(context.Background(), userID, testID)
	if err != nil {
		conn.WriteError("no open session for this test")
		return
	}

	wsLog.Info().Msg("Session stream connected")
	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Session: state})

	done := make(chan struct{})
	defer close(done)
	go h.tickLoop(conn, wsLog, userID, testID, done)

	for {
		var msg ws.Request
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		case ws.ActionEvent:
			h.handleEvent(conn, userID, testID, &msg)
		case ws.ActionFinalize:
			if h.handleFinalize(conn, wsLog, userID, testID) {
				return
			}
		default:
			conn.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// tickLoop pushes the remaining seconds every second. When the countdown
// hits zero it fires the auto-finalize; the service's lock and the
// submissions arbiter make a double fire across tabs or instances harmless.
func (h *WSHandler) tickLoop(conn *ws.Conn, wsLog zerolog.Logger, userID int, testID uuid.UUID, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}

		remaining, err := h.sessionService.Remaining(context.Background(), userID, testID)
		if err != nil {
			return
		}

		if err := conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: remaining}); err != nil {
			return
		}

		if remaining > 0 {
			continue
		}

		conn.WriteTyped(ws.ExpiredResponse{Event: ws.EventExpired})

		result, err := h.sessionService.Finalize(context.Background(), userID, testID, true)
		if err != nil {
			if errors.Is(err, service.ErrDuplicateSubmission) || errors.Is(err, service.ErrSessionSubmitted) ||
				errors.Is(err, service.ErrFinalizeInFlight) {
				// Another trigger already got it; that's the point.
				return
			}
			wsLog.Error().Err(err).Msg("Auto-finalize failed")
			return
		}

		wsLog.Info().Msg("Session auto-finalized on expiry")
		conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Submission: result})
		return
	}
}

func (h *WSHandler) handleEvent(conn *ws.Conn, userID int, testID uuid.UUID, msg *ws.Request) {
	req := &model.SessionEventRequest{
		Event:      msg.Event,
		Question:   msg.Question,
		Option:     msg.Option,
		Confidence: msg.Confidence,
	}

	state, err := h.sessionService.ApplyEvent(context.Background(), userID, testID, req)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}

	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, Session: state})
}

// handleFinalize reports whether the stream should close.
func (h *WSHandler) handleFinalize(conn *ws.Conn, wsLog zerolog.Logger, userID int, testID uuid.UUID) bool {
	result, err := h.sessionService.Finalize(context.Background(), userID, testID, false)
	if err != nil {
		conn.WriteError(err.Error())
		return false
	}

	wsLog.Info().Msg("Session finalized over stream")
	conn.WriteTyped(ws.SubmittedResponse{Event: ws.EventSubmitted, Submission: result})
	return true
}
