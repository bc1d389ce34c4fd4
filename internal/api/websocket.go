package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/BTreeMap/HabitLens/internal/auth"
	"github.com/BTreeMap/HabitLens/internal/models"
)

// chatWebSocketHandler runs the chat over a WebSocket. The greeting is sent on connect; each
// text frame from the client is one user message and each reply is a JSON ChatReply.
func (s *Server) chatWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	slog.Info("WebSocket chat connection request", "userID", userID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(s.opts.CORSOrigins),
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "userID", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "userID", userID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	reply, err := s.conv.Greet(ctx, userID)
	if err != nil {
		slog.Warn("WebSocket chat greeting returned error", "userID", userID, "error", err)
	}
	if err := writeReply(ctx, ws, reply); err != nil {
		return
	}

	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket chat closed", "userID", userID)
			} else {
				slog.Warn("WebSocket chat read failed", "userID", userID, "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		req := models.ChatRequest{Text: string(data)}
		if err := req.Validate(); err != nil {
			if err := writeFrame(ctx, ws, models.Error(err.Error())); err != nil {
				return
			}
			continue
		}

		reply, err := s.conv.Handle(ctx, userID, req.Text)
		if err != nil {
			slog.Warn("WebSocket chat message processed with error", "userID", userID, "state", reply.State, "error", err)
		}
		if err := writeReply(ctx, ws, reply); err != nil {
			return
		}
	}
}

// originHosts turns CORS origins ("https://app.example.com") into WebSocket origin host patterns.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}

func writeReply(ctx context.Context, ws *websocket.Conn, reply models.ChatReply) error {
	return writeFrame(ctx, ws, normalizeReply(reply))
}

func writeFrame(ctx context.Context, ws *websocket.Conn, v any) error {
	if err := wsjson.Write(ctx, ws, v); err != nil {
		slog.Debug("WebSocket write error", "error", err)
		return err
	}
	return nil
}
