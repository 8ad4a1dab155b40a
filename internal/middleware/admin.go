package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"bracket-be/internal/service/auth"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"
)

// AdminAuth creates a middleware that requires a valid allowlisted admin
// bearer token, placing the identity in the request context.
func AdminAuth(authService *auth.Service, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeErrorResponse(w, r, errors.NewUnauthorized("Authorization header is required"), logger)
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeErrorResponse(w, r, errors.NewUnauthorized("Invalid authorization header format"), logger)
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" {
				writeErrorResponse(w, r, errors.NewUnauthorized("Token is required"), logger)
				return
			}

			ctx := r.Context()
			identity, err := authService.ValidateAdminToken(ctx, token)
			if err != nil {
				appErr := errors.AsAppError(err)
				if appErr == nil {
					appErr = errors.NewUnauthorized("Invalid or expired token")
				}
				writeErrorResponse(w, r, appErr, logger)
				return
			}

			ctx = context.WithValue(ctx, AdminContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdmin returns the authenticated admin identity from context, or nil.
func GetAdmin(ctx context.Context) *auth.AdminIdentity {
	if identity, ok := ctx.Value(AdminContextKey).(*auth.AdminIdentity); ok {
		return identity
	}
	return nil
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	logger.WithError(appErr).WithField("path", r.URL.Path).Warn("Request rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	resp := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"type":       appErr.Type,
			"code":       appErr.Code,
			"message":    appErr.Message,
			"request_id": GetRequestID(r.Context()),
		},
	}
	_ = json.NewEncoder(w).Encode(resp)
}
