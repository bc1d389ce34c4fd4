package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BTreeMap/HabitLens/internal/auth"
	"github.com/BTreeMap/HabitLens/internal/models"
	"github.com/BTreeMap/HabitLens/internal/planner"
)

// scheduleView is the result of GET /schedules/{date}.
type scheduleView struct {
	Schedule models.ScheduleDocument `json:"schedule"`
	Stats    models.ScheduleStats    `json:"stats"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("healthy", nil))
}

func (s *Server) greetingHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	slog.Debug("Server.greetingHandler: greeting user", "userID", userID)

	reply, err := s.conv.Greet(r.Context(), userID)
	writeChatReply(w, userID, reply, err, "Failed to open conversation")
}

func (s *Server) chatMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	userID := auth.UserIDFromContext(r.Context())

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatMessageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatMessageHandler: validation failed", "userID", userID, "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	reply, err := s.conv.Handle(r.Context(), userID, req.Text)
	slog.Debug("Server.chatMessageHandler: replied", "userID", userID, "state", reply.State, "messages", len(reply.Messages))
	writeChatReply(w, userID, reply, err, "Failed to process message")
}

func (s *Server) chatResetHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := s.conv.Reset(r.Context(), userID); err != nil {
		slog.Error("Server.chatResetHandler: reset failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error("Failed to reset conversation"))
		return
	}
	slog.Info("Server.chatResetHandler: conversation reset", "userID", userID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation reset", nil))
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	profile, err := s.repo.LoadUserProfile(r.Context(), userID)
	if err != nil {
		slog.Error("Server.profileHandler: load failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error("Failed to load profile"))
		return
	}
	if profile == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Profile not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// scheduleDate resolves the {date} path parameter; "today" uses the repository clock.
func (s *Server) scheduleDate(r *http.Request) (string, error) {
	date := chi.URLParam(r, "date")
	if strings.EqualFold(date, "today") {
		return models.ScheduleDate(s.repo.Now()), nil
	}
	return date, models.ValidateScheduleDate(date)
}

func (s *Server) scheduleHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	date, err := s.scheduleDate(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	doc, err := s.repo.LoadSchedule(r.Context(), userID, date)
	if err != nil {
		slog.Error("Server.scheduleHandler: load failed", "userID", userID, "date", date, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error("Failed to load schedule"))
		return
	}
	if doc == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No schedule for "+date))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(scheduleView{
		Schedule: *doc,
		Stats:    planner.CalculateStats(doc.Items),
	}))
}

func (s *Server) scheduleExportHandler(w http.ResponseWriter, r *http.Request) {
	if s.calendar == nil {
		writeJSONResponse(w, http.StatusNotImplemented, models.Error("Calendar export is not configured"))
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	date, err := s.scheduleDate(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	doc, err := s.repo.LoadSchedule(r.Context(), userID, date)
	if err != nil {
		slog.Error("Server.scheduleExportHandler: load failed", "userID", userID, "date", date, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error("Failed to load schedule"))
		return
	}
	if doc == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No schedule for "+date))
		return
	}

	ids, err := s.calendar.Export(r.Context(), *doc)
	if err != nil {
		slog.Error("Server.scheduleExportHandler: export failed", "userID", userID, "date", date, "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Failed to export schedule"))
		return
	}
	slog.Info("Server.scheduleExportHandler: schedule exported", "userID", userID, "date", date, "events", len(ids))
	writeJSONResponse(w, http.StatusOK, models.Success(map[string][]string{"eventIds": ids}))
}

func (s *Server) listHabitsHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	habits, err := s.repo.ListHabits(r.Context(), userID)
	if err != nil {
		slog.Error("Server.listHabitsHandler: list failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error("Failed to load habits"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(habits))
}

func (s *Server) addHabitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	userID := auth.UserIDFromContext(r.Context())

	var req models.HabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addHabitHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	habit, err := s.repo.AddHabit(r.Context(), userID, req)
	if err != nil {
		slog.Error("Server.addHabitHandler: add failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error("Failed to add habit"))
		return
	}
	slog.Info("Server.addHabitHandler: habit added", "userID", userID, "habitID", habit.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(habit))
}

func (s *Server) completeHabitHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	habitID := chi.URLParam(r, "id")

	habit, err := s.repo.CompleteHabit(r.Context(), userID, habitID)
	if err != nil {
		slog.Warn("Server.completeHabitHandler: completion failed", "userID", userID, "habitID", habitID, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error(err.Error()))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(habit))
}

func (s *Server) habitAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	habits, err := s.repo.ListHabits(r.Context(), userID)
	if err != nil {
		slog.Error("Server.habitAnalysisHandler: list failed", "userID", userID, "error", err)
		writeJSONResponse(w, statusFor(err), models.Error("Failed to load habits"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(planner.AnalyzeHabits(habits)))
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var upstream *models.UpstreamError
	var persistence *models.PersistenceError
	switch {
	case errors.Is(err, models.ErrUnknownHabit), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrHabitAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyMessage), errors.Is(err, models.ErrMessageTooLong):
		return http.StatusBadRequest
	case errors.As(err, &upstream), errors.Is(err, models.ErrUnparseable):
		return http.StatusBadGateway
	case errors.As(err, &persistence), errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
