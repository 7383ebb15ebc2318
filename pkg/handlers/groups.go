package handlers

import (
	"net/http"

	"club-space-backend/pkg/services"
	"club-space-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// GroupHandler 社区小组处理器
type GroupHandler struct {
	svc *services.GroupService
}

// NewGroupHandler 创建小组处理器
func NewGroupHandler(svc *services.GroupService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

// ListGroups 小组列表
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	groups, err := h.svc.List(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"groups": groups})
}

// CreateGroup 创建小组
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.CreateGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := h.svc.Create(r.Context(), session.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, group)
}

// GetGroup 小组详情
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	group, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, group)
}

// JoinGroup 加入小组；重复加入返回 409 ALREADY_MEMBER
func (h *GroupHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	membership, err := h.svc.Join(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, membership)
}

// LeaveGroup 退出小组
func (h *GroupHandler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.Leave(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}
