package handlers

import (
	"errors"
	"net/http"

	"club-space-backend/pkg/middleware"
	"club-space-backend/pkg/models"
	"club-space-backend/pkg/utils"
)

// requireSession 取出会话，缺失时写 401
func requireSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	session, err := middleware.RequireSession(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return nil, false
	}
	return session, true
}

// checkActingUser 请求里显式给出的用户ID必须与会话一致
func checkActingUser(w http.ResponseWriter, session *models.Session, claimed string) bool {
	if claimed != "" && claimed != session.UserID {
		utils.WriteForbiddenResponse(w, "user_id does not match the signed-in user")
		return false
	}
	return true
}

// decodeJSON 解析并校验请求体，失败时写 400
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := utils.ParseJSONBody(r, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.WriteErrorResponseWithCode(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body too large", nil)
			return false
		}
		utils.WriteBadRequestResponse(w, "Invalid request body")
		return false
	}
	if errs := utils.ValidateStruct(v); len(errs) > 0 {
		utils.WriteValidationErrorResponse(w, "Invalid request", errs)
		return false
	}
	return true
}
