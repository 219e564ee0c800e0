package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/middleware"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
	ws "github.com/stemsi/exstem-adaptive/internal/websocket"
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

// WSHandler streams proctoring events from the exam client.
type WSHandler struct {
	proctoringService *service.ProctoringService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(proctoringService *service.ProctoringService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		proctoringService: proctoringService,
		log:               log.With().Str("component", "ws_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// ProctoringStream godoc
// WS /ws/v1/sessions/:id/proctoring?token=
// Upgrades to WebSocket; every event message is acknowledged in order.
func (h *WSHandler) ProctoringStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := parseID(c)
	if !ok {
		return
	}

	// Ownership is checked before the upgrade so failures get a normal
	// HTTP status.
	ctx := c.Request.Context()
	session, err := h.proctoringService.Authorize(ctx, sessionID, claims.Subject)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(ws.MaxMessageSize)

	wsLog := h.log.With().
		Str("student_id", claims.Subject).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Proctoring stream connected")

	for {
		data, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var msg ws.EventRequest
		if err := json.Unmarshal(data, &msg); err != nil {
			// Unparsable frames still get an ack so the client's ordering
			// holds.
			_ = ws.WriteAck(conn, false)
			continue
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		case ws.ActionEvent:
			if err := binding.Validator.ValidateStruct(&msg.LogProctoringEventRequest); err != nil {
				_ = ws.WriteAck(conn, false)
				continue
			}
			accepted, err := h.proctoringService.Record(ctx, session, &msg.LogProctoringEventRequest)
			if err != nil {
				wsLog.Error().Err(err).Msg("Record proctoring event")
				_ = ws.WriteError(conn, "event could not be stored")
				continue
			}
			_ = ws.WriteAck(conn, accepted)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			_ = ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}
