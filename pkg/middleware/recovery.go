package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"club-space-backend/pkg/config"
	"club-space-backend/pkg/logger"
	"club-space-backend/pkg/utils"
)

// Recovery 恢复中间件，处理panic并返回友好的错误信息
func Recovery(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					stack := debug.Stack()
					logger.FromContext(r.Context()).
						WithField("panic", fmt.Sprint(rec)).
						WithField("stack", string(stack)).
						Error("❌ PANIC")

					if cfg.IsDevelopment() {
						utils.WriteErrorResponseWithCode(w, http.StatusInternalServerError,
							"INTERNAL_SERVER_ERROR",
							fmt.Sprintf("Internal server error: %v", rec),
							string(stack))
						return
					}
					utils.WriteInternalServerErrorResponse(w, "Internal server error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
