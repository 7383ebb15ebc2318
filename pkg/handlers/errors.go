package handlers

import (
	"errors"
	"net/http"

	"club-space-backend/pkg/booking"
	"club-space-backend/pkg/database"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/middleware"
	"club-space-backend/pkg/services"
	"club-space-backend/pkg/teams"
	"club-space-backend/pkg/utils"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// errorTable 领域错误 -> HTTP 状态码，按顺序匹配
var errorTable = []errorMapping{
	{middleware.ErrNoSession, http.StatusUnauthorized, "UNAUTHORIZED"},

	{booking.ErrNoSlots, http.StatusBadRequest, "NO_SLOTS"},
	{booking.ErrInvalidSlot, http.StatusBadRequest, "INVALID_SLOT"},
	{booking.ErrDuplicateSlot, http.StatusBadRequest, "DUPLICATE_SLOT"},
	{booking.ErrNotContiguous, http.StatusBadRequest, "SLOTS_NOT_CONTIGUOUS"},
	{booking.ErrInvalidDate, http.StatusBadRequest, "INVALID_DATE"},
	{booking.ErrPastDate, http.StatusBadRequest, "PAST_DATE"},
	{booking.ErrInvalidRate, http.StatusBadRequest, "INVALID_RATE"},
	{booking.ErrCancelWindow, http.StatusBadRequest, "CANCEL_WINDOW_CLOSED"},
	{booking.ErrNotCancelable, http.StatusConflict, "NOT_CANCELABLE"},

	{teams.ErrEmptyName, http.StatusBadRequest, "EMPTY_TEAM_NAME"},
	{teams.ErrInvalidTeamSize, http.StatusBadRequest, "INVALID_TEAM_SIZE"},
	{teams.ErrDuplicateInvitee, http.StatusBadRequest, "DUPLICATE_INVITEE"},
	{teams.ErrLeaderInvited, http.StatusBadRequest, "LEADER_INVITED"},
	{teams.ErrInvalidResponse, http.StatusBadRequest, "INVALID_RESPONSE"},
	{teams.ErrNotInvitee, http.StatusForbidden, "NOT_INVITEE"},
	{teams.ErrNotLeader, http.StatusForbidden, "NOT_LEADER"},
	{teams.ErrMemberNotFound, http.StatusNotFound, "MEMBER_NOT_FOUND"},
	{teams.ErrInvitationNotPending, http.StatusConflict, "INVITATION_NOT_PENDING"},
	{teams.ErrTeamNotPending, http.StatusConflict, "TEAM_NOT_PENDING"},
	{teams.ErrLeaderCount, http.StatusConflict, "LEADER_COUNT"},
	{teams.ErrInvalidMeetingType, http.StatusBadRequest, "INVALID_MEETING_TYPE"},
	{teams.ErrMeetingTeams, http.StatusBadRequest, "INVALID_MEETING_TEAMS"},
	{teams.ErrTeamNotActive, http.StatusConflict, "TEAM_NOT_ACTIVE"},

	{services.ErrEmptyContent, http.StatusBadRequest, "EMPTY_CONTENT"},
	{services.ErrEmptyGroupName, http.StatusBadRequest, "EMPTY_GROUP_NAME"},
	{services.ErrSelfFollow, http.StatusBadRequest, "SELF_FOLLOW"},
	{services.ErrSelfMessage, http.StatusBadRequest, "SELF_MESSAGE"},
	{services.ErrAmbiguousInvitee, http.StatusBadRequest, "AMBIGUOUS_INVITEE"},
	{services.ErrInviteeNotFound, http.StatusNotFound, "INVITEE_NOT_FOUND"},
	{services.ErrEmptyMeetingTitle, http.StatusBadRequest, "EMPTY_MEETING_TITLE"},
	{services.ErrInvalidMeetingTime, http.StatusBadRequest, "INVALID_MEETING_TIME"},

	{database.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{database.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{database.ErrAlreadyMember, http.StatusConflict, "ALREADY_MEMBER"},
	{database.ErrSlotTaken, http.StatusConflict, "SLOT_TAKEN"},
	{database.ErrConflict, http.StatusConflict, "CONFLICT"},
}

// writeError 统一把错误映射为 {error, code} 响应
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			utils.WriteErrorResponseWithCode(w, m.status, m.code, err.Error(), nil)
			return
		}
	}

	// 托管存储返回的其他 4xx 原样透传为 400
	var apiErr *database.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		logger.FromContext(r.Context()).WithError(err).Warn("⚠️ Store rejected request")
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "STORE_ERROR", apiErr.Message, nil)
		return
	}

	logger.FromContext(r.Context()).WithError(err).Error("❌ Request failed")
	utils.WriteInternalServerErrorResponse(w, "Internal server error")
}
