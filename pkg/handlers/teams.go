package handlers

import (
	"net/http"

	"club-space-backend/pkg/services"
	"club-space-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// TeamHandler 小队与邀请处理器
type TeamHandler struct {
	svc *services.TeamService
}

// NewTeamHandler 创建小队处理器
func NewTeamHandler(svc *services.TeamService) *TeamHandler {
	return &TeamHandler{svc: svc}
}

// CreateTeam POST /api/create-team
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.CreateTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkActingUser(w, session, req.LeaderID) {
		return
	}
	team, err := h.svc.Create(r.Context(), session.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true, "team": team})
}

// RespondInvitation POST /api/respond-invitation
func (h *TeamHandler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !checkActingUser(w, session, req.UserID) {
		return
	}
	result, err := h.svc.Respond(r.Context(), session.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"success":        true,
		"message":        result.Message,
		"team_id":        result.Outcome.TeamID,
		"team_status":    result.Outcome.TeamStatus,
		"team_activated": result.Outcome.TeamActivated,
	})
}

// Notifications GET /api/notifications
func (h *TeamHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if !checkActingUser(w, session, r.URL.Query().Get("user_id")) {
		return
	}
	notifications, err := h.svc.Notifications(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true, "notifications": notifications})
}

// ListTeams GET /api/teams
func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListTeams(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"teams": list, "team_size": h.svc.Policy().Size})
}

// DisbandTeam POST /api/teams/{id}/disband
func (h *TeamHandler) DisbandTeam(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.Disband(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}

// ListMeetings GET /api/teams/meetings
func (h *TeamHandler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := h.svc.ListMeetings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"meetings": meetings})
}

// CreateMeeting POST /api/teams/meetings
func (h *TeamHandler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.CreateMeetingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	meeting, err := h.svc.CreateMeeting(r.Context(), session.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"success": true, "meeting": meeting})
}
