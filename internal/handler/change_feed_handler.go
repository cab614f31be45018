package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-core/internal/mediator"
	"github.com/stemsi/qbank-core/internal/model"
	"github.com/stemsi/qbank-core/internal/response"
	ws "github.com/stemsi/qbank-core/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
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

// ChangeFeedHandler streams a bank's committed changes over a WebSocket.
type ChangeFeedHandler struct {
	dispatcher *mediator.Dispatcher
	log        zerolog.Logger
	upgrader   websocket.Upgrader
}

// NewChangeFeedHandler creates a new ChangeFeedHandler.
func NewChangeFeedHandler(dispatcher *mediator.Dispatcher, log zerolog.Logger, allowedOrigins []string) *ChangeFeedHandler {
	return &ChangeFeedHandler{
		dispatcher: dispatcher,
		log:        log.With().Str("component", "change_feed_handler").Logger(),
		upgrader:   buildUpgrader(allowedOrigins),
	}
}

// StreamChanges godoc
// WS /api/v1/users/:user_id/question-banks/:bank_id/changes
// Subscribes before upgrading, so authorization failures are plain JSON
// responses. After the upgrade the server sends "ready" and then one
// "change" event per committed record.
func (h *ChangeFeedHandler) StreamChanges(c *gin.Context) {
	uri, ok := bindQuestionURI(c, false)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	res := mediator.Ask(ctx, h.dispatcher, model.WatchChangesQuery{TenantScope: uri.Scope()})
	if res.IsFailure() {
		response.FailOutcome(c, res.Code(), res.Message())
		return
	}
	stream := res.Value()
	defer stream.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int64("user_id", uri.UserID).
		Int64("question_bank_id", uri.QuestionBankID).
		Logger()
	wsLog.Info().Msg("Change feed subscriber connected")
	defer wsLog.Info().Msg("Change feed subscriber disconnected")

	// Only this goroutine writes; the reader hands replies over.
	replies := make(chan any, 4)
	go readLoop(conn, replies, wsLog, cancel)

	if err := ws.WriteTyped(conn, ws.ReadyResponse{
		Event:          ws.EventReady,
		UserID:         uri.UserID,
		QuestionBankID: uri.QuestionBankID,
	}); err != nil {
		return
	}

	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case rec, open := <-stream.Records():
			if !open {
				ws.WriteError(conn, "change feed closed")
				return
			}
			if err := ws.WriteTyped(conn, ws.ChangeResponse{Event: ws.EventChange, Change: rec}); err != nil {
				wsLog.Debug().Err(err).Msg("Change write failed")
				return
			}
		case reply := <-replies:
			if err := ws.WriteTyped(conn, reply); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(conn); err != nil {
				return
			}
		}
	}
}

// readLoop answers client actions until the connection fails, then cancels
// the stream.
func readLoop(conn *websocket.Conn, replies chan<- any, log zerolog.Logger, cancel context.CancelFunc) {
	defer cancel()
	ws.KeepAlive(conn)

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			} else {
				log.Debug().Msg("Connection closed")
			}
			return
		}

		var reply any
		switch msg.Action {
		case ws.ActionPing:
			reply = ws.PongResponse{Event: ws.EventPong}
		default:
			log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			reply = ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)}
		}
		select {
		case replies <- reply:
		default:
		}
	}
}
