package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/proctorly/proctorly-backend/internal/logger"
	"github.com/proctorly/proctorly-backend/internal/middleware"
	"github.com/proctorly/proctorly-backend/internal/model"
	"github.com/proctorly/proctorly-backend/internal/service"
	ws "github.com/proctorly/proctorly-backend/internal/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler drives the live exam channel: answer mutations, review marks
// and proctoring events arrive here and feed the session's runtime.
type WSHandler struct {
	manager  *service.Manager
	hub      *ws.Hub
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(manager *service.Manager, hub *ws.Hub, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		manager:  manager,
		hub:      hub,
		log:      logger.Component(log, "ws_handler"),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exam/stream?token=...
// Upgrades to WebSocket for answer state mutations and violation reporting.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rt, ok := h.manager.Get(claims.ExamID)
	if !ok {
		var err error
		rt, err = h.manager.StartExam(c.Request.Context(), claims.CandidateID)
		if err != nil || rt.ExamID != claims.ExamID {
			c.JSON(http.StatusGone, gin.H{"error": "no active session for this exam"})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.hub.Register(rt.ExamID, conn)
	defer h.hub.Unregister(rt.ExamID, conn)

	wsLog := h.log.With().
		Str("exam_id", rt.ExamID).
		Str("candidate_id", claims.CandidateID).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	for {
		raw, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(raw, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionVisit, ws.ActionAnswer, ws.ActionMark, ws.ActionClear:
			h.handleQuestionAction(conn, wsLog, rt, raw, envelope.Action)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, rt, raw)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(envelope.Action))
		}
	}
}

// handleQuestionAction applies one state-machine mutation and acknowledges
// with the question's resulting status.
func (h *WSHandler) handleQuestionAction(conn *websocket.Conn, wsLog zerolog.Logger, rt *service.Runtime, raw []byte, action ws.Action) {
	var msg ws.QuestionRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed question payload")
		return
	}

	section := model.Section(msg.Section)
	if !model.ValidSection(section) {
		ws.WriteError(conn, "invalid section: "+msg.Section)
		return
	}
	if msg.QuestionID < 1 {
		ws.WriteError(conn, "question_id must be positive")
		return
	}

	ctx := context.Background()
	switch action {
	case ws.ActionVisit:
		rt.Answers.OnVisit(ctx, section, msg.QuestionID)
	case ws.ActionAnswer:
		rt.Answers.OnAnswerChange(ctx, section, msg.QuestionID, msg.Answer)
	case ws.ActionMark:
		rt.Answers.OnMarkForReview(ctx, section, msg.QuestionID)
	case ws.ActionClear:
		rt.Answers.OnClearResponse(ctx, section, msg.QuestionID)
	}

	ws.WriteTyped(conn, ws.SavedResponse{
		Event:      ws.EventSaved,
		Section:    msg.Section,
		QuestionID: msg.QuestionID,
		Status:     string(rt.Answers.Status(section, msg.QuestionID)),
	})
}

// handleViolation feeds one proctoring event into the aggregator. The
// aggregator owns thresholds and termination; this layer only validates
// and forwards.
func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, rt *service.Runtime, raw []byte) {
	var msg ws.ViolationRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		ws.WriteError(conn, "malformed violation payload")
		return
	}

	vt := model.ViolationType(msg.Type)
	if !model.ValidViolationType(vt) {
		ws.WriteError(conn, "unknown violation type: "+msg.Type)
		return
	}

	rt.Violations.Record(context.Background(), model.Violation{
		Type:        vt,
		Severity:    model.ViolationSeverity(msg.Severity),
		Description: msg.Description,
		Duration:    msg.Duration,
	})

	wsLog.Debug().Str("type", msg.Type).Msg("Violation forwarded")
}
