package handlers

import (
	"net/http"

	"club-space-backend/pkg/services"
	"club-space-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// ReservationHandler 场地与预约处理器
type ReservationHandler struct {
	svc *services.ReservationService
}

// NewReservationHandler 创建预约处理器
func NewReservationHandler(svc *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

// ListSpaces 场地列表
func (h *ReservationHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.svc.ListSpaces(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"spaces": spaces})
}

// GetSpace 场地详情
func (h *ReservationHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	space, err := h.svc.GetSpace(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, space)
}

// Availability 某场地某天的时段占用情况
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		utils.WriteBadRequestResponse(w, "date is required (YYYY-MM-DD)")
		return
	}
	avail, err := h.svc.Availability(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, avail)
}

// CreateReservation 预约连续时段
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req services.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reservation, err := h.svc.Book(r.Context(), session.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteCreatedResponse(w, map[string]interface{}{"success": true, "reservation": reservation})
}

// MyReservations 我的预约
func (h *ReservationHandler) MyReservations(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	list, err := h.svc.MyReservations(r.Context(), session.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"reservations": list})
}

// CancelReservation 取消预约
func (h *ReservationHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	reservation, err := h.svc.Cancel(r.Context(), session.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{"success": true, "reservation": reservation})
}
