package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/educonnect/internal/course"
)

const (
	wsReadTimeout  = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// Message types sent on the generation socket.
const (
	msgProgress = "progress"
	msgCourse   = "course"
	msgError    = "error"
)

// wsMessage is one server-to-client message of a streamed generation.
type wsMessage struct {
	Type    string            `json:"type"`
	Stage   course.Stage      `json:"stage,omitempty"`
	Course  *course.Course    `json:"course,omitempty"`
	Warning string            `json:"warning,omitempty"`
	Status  int               `json:"status,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// handleGenerateWS runs one generation per connection: the client sends a
// generate body, the server streams each stage and finishes with the course
// or an error, then closes.
func (s *Server) handleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	user := userID(r)

	var body generateRequest
	readCtx, cancel := context.WithTimeout(ctx, wsReadTimeout)
	err = wsjson.Read(readCtx, conn, &body)
	cancel()
	if err != nil {
		slog.Warn("websocket read failed", "user_id", user, "error", err)
		s.send(ctx, conn, wsMessage{Type: msgError, Status: http.StatusBadRequest, Error: "invalid JSON body"})
		conn.Close(websocket.StatusUnsupportedData, "invalid request")
		return
	}

	req, bad := s.prepare(body, user)
	if bad != nil {
		s.send(ctx, conn, wsMessage{Type: msgError, Status: http.StatusBadRequest, Error: bad.Error, Fields: bad.Fields})
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	c, err := s.generator.Generate(ctx, req, func(stage course.Stage) {
		s.send(ctx, conn, wsMessage{Type: msgProgress, Stage: stage})
	})
	switch {
	case err == nil:
		s.send(ctx, conn, wsMessage{Type: msgCourse, Course: c})
	case errors.Is(err, course.ErrPersistence) && c != nil:
		s.unsaved.Add(c)
		s.send(ctx, conn, wsMessage{Type: msgCourse, Course: c, Warning: persistenceWarning})
	default:
		status, msg := generationStatus(err)
		s.send(ctx, conn, wsMessage{Type: msgError, Status: status, Error: msg})
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// send writes one message. Failures are logged only: a client that went
// away does not stop the generation, which still persists the course.
func (s *Server) send(ctx context.Context, conn *websocket.Conn, msg wsMessage) {
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		slog.Debug("websocket write failed", "type", msg.Type, "error", err)
	}
}
