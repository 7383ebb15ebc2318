package handlers

import (
	"net/http"
	"strconv"

	"club-space-backend/pkg/services"
	"club-space-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// SocialHandler 用户搜索、主页、动态、评论与私信
type SocialHandler struct {
	svc *services.SocialService
}

// NewSocialHandler 创建社交处理器
func NewSocialHandler(svc *services.SocialService) *SocialHandler {
	return &SocialHandler{svc: svc}
}

// SearchUsers GET ?q= 或 POST {searchName}
func (h *SocialHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if r.Method == http.MethodPost {
		var req struct {
			SearchName string `json:"searchName"`
		}
		if err := utils.ParseJSONBody(r, &req); err != nil {
			utils.WriteBadRequestResponse(w, "Invalid request body")
			return
		}
		query = req.SearchName
	}
	users, err := h.svc.SearchUsers(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"users": users})
}

// GetProfile 用户主页
func (h *SocialHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.GetProfile(r.Context(), chi.URLParam(r, "id"), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, stats)
}

// Follow 关注
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.Follow(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}

// Unfollow 取消关注
func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unfollow(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}

// Feed 最新动态，?following=true 只看关注
func (h *SocialHandler) Feed(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	followingOnly, _ := strconv.ParseBool(utils.GetQueryParam(r, "following", "false"))
	posts, err := h.svc.Feed(r.Context(), session.UserID, followingOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"posts": posts})
}

// CreatePost 发布动态
func (h *SocialHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	post, err := h.svc.CreatePost(r.Context(), session.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, post)
}

// Like 点赞
func (h *SocialHandler) Like(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.Like(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}

// Unlike 取消点赞
func (h *SocialHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unlike(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}

// ListComments 评论列表
func (h *SocialHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.svc.Comments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"comments": comments})
}

// CreateComment 发表评论
func (h *SocialHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	comment, err := h.svc.AddComment(r.Context(), session.UserID, chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, comment)
}

// ListMessages 私信列表，?with= 过滤对话对象
func (h *SocialHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	messages, err := h.svc.Messages(r.Context(), session.UserID, r.URL.Query().Get("with"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"messages": messages})
}

// SendMessage 发送私信
func (h *SocialHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	message, err := h.svc.SendMessage(r.Context(), session.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, message)
}

// MarkMessageRead 标记已读
func (h *SocialHandler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(r.Context(), session.UserID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true})
}
