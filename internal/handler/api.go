package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/wellness-tracker/internal/apperror"
	"github.com/sakif/wellness-tracker/internal/auth"
)

// PointsResponse answers the study and most-used-app actions.
type PointsResponse struct {
	Success bool `json:"success"`
	Points  int  `json:"points"`
}

// TaskResponse answers POST /complete_task.
type TaskResponse struct {
	Success           bool `json:"success"`
	Points            int  `json:"points"`
	PointsEarned      int  `json:"points_earned"`
	TotalWellnessTime int  `json:"total_wellness_time"`
}

// SuccessResponse answers POST /change_avatar.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// APIHandler serves the JSON actions the dashboard calls.
type APIHandler struct {
	svc    Wellness
	logger *slog.Logger
}

// NewAPIHandler creates an APIHandler.
func NewAPIHandler(svc Wellness, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, logger: logger}
}

// HandleCompleteTask credits a finished wellness task.
//
// HTTP: POST /complete_task
// REQUEST BODY: {"task_id": 2, "duration": 15}
func (h *APIHandler) HandleCompleteTask(w http.ResponseWriter, r *http.Request) {
	sessionID, b, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	res, err := h.svc.CompleteTask(r.Context(), sessionID, b.taskID(), b.duration())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TaskResponse{
		Success:           true,
		Points:            res.Points,
		PointsEarned:      res.PointsEarned,
		TotalWellnessTime: res.TotalWellnessTime,
	})
}

// HandleCompleteStudy credits a study session that ran to the end.
//
// HTTP: POST /complete_study
// REQUEST BODY: {"duration": 25}
func (h *APIHandler) HandleCompleteStudy(w http.ResponseWriter, r *http.Request) {
	sessionID, b, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	points, err := h.svc.CompleteStudy(r.Context(), sessionID, b.duration())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PointsResponse{Success: true, Points: points})
}

// HandleStopStudy applies the early-stop penalty. The body is ignored.
//
// HTTP: POST /stop_study
func (h *APIHandler) HandleStopStudy(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := auth.SessionIDFromContext(r.Context())

	points, err := h.svc.StopStudy(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PointsResponse{Success: true, Points: points})
}

// HandleUpdateMostUsedApp records the user's most used app.
//
// HTTP: POST /update_most_used_app
// REQUEST BODY: {"app_name": "This app"}
func (h *APIHandler) HandleUpdateMostUsedApp(w http.ResponseWriter, r *http.Request) {
	sessionID, b, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	points, err := h.svc.UpdateMostUsedApp(r.Context(), sessionID, b.appName())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PointsResponse{Success: true, Points: points})
}

// HandleChangeAvatar switches to an unlocked avatar. A locked one answers 400.
//
// HTTP: POST /change_avatar
// REQUEST BODY: {"avatar_id": 4}
func (h *APIHandler) HandleChangeAvatar(w http.ResponseWriter, r *http.Request) {
	sessionID, b, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	if err := h.svc.ChangeAvatar(r.Context(), sessionID, b.avatarID()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// readRequest returns the session id and decoded body, or writes the error
// response and returns false.
//
// A request without a user gets 401 even when its body is also malformed;
// the session check is only paid for on that failure path.
func (h *APIHandler) readRequest(w http.ResponseWriter, r *http.Request) (string, body, bool) {
	sessionID, _ := auth.SessionIDFromContext(r.Context())

	b, decodeErr := decodeBody(w, r)
	if decodeErr == nil {
		return sessionID, b, true
	}

	loggedIn, err := h.svc.LoggedIn(r.Context(), sessionID)
	switch {
	case err != nil:
		writeError(w, err)
	case !loggedIn:
		writeError(w, apperror.Unauthorized("Not logged in"))
	default:
		h.logger.Warn("invalid JSON body",
			slog.String("path", r.URL.Path),
			slog.String("error", decodeErr.Error()),
		)
		writeError(w, decodeErr)
	}
	return "", nil, false
}
