// Package api provides the HabitLens HTTP and WebSocket API.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/HabitLens/internal/models"
)

// fallbackErrorBody is written when a response cannot be encoded.
var fallbackErrorBody []byte

func init() {
	var err error
	fallbackErrorBody, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("api: marshal fallback error body: %v", err))
	}
}

// writeJSONResponse encodes response before touching the headers, so an encoding failure still
// produces a well-formed 500 envelope.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	body, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "status", statusCode, "error", err)
		body = fallbackErrorBody
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", err)
	}
}

// normalizeReply makes sure Messages encodes as an array.
func normalizeReply(reply models.ChatReply) models.ChatReply {
	if reply.Messages == nil {
		reply.Messages = []models.ChatMessage{}
	}
	return reply
}

// writeChatReply answers a chat operation. A reply that carries messages is shown to the user
// with 200 even when err is set, since the conversation already rendered the failure. Without
// messages, err is mapped by statusFor and failMsg is returned in the error envelope.
func writeChatReply(w http.ResponseWriter, userID string, reply models.ChatReply, err error, failMsg string) {
	if err != nil && len(reply.Messages) == 0 {
		slog.Error("Server.writeChatReply: chat failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error(failMsg))
		return
	}
	if err != nil {
		slog.Warn("Server.writeChatReply: reply carries error", "userID", userID, "state", reply.State, "error", err)
	}
	writeJSONResponse(w, http.StatusOK, models.Success(normalizeReply(reply)))
}
