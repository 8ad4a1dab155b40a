package auth

import (
	"context"
	"fmt"
	"strings"

	"bracket-be/internal/config"
	"bracket-be/pkg/errors"
	"bracket-be/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// AdminIdentity is the authenticated actor behind an admin request.
type AdminIdentity struct {
	Subject string
	Email   string
}

// Service validates admin bearer tokens. A token is accepted when its HMAC
// signature verifies against the configured secret and its email claim is on
// the allowlist.
type Service struct {
	secret    []byte
	allowlist map[string]struct{}
	logger    *logger.Logger
}

func NewService(cfg *config.Config, log *logger.Logger) *Service {
	allowlist := make(map[string]struct{}, len(cfg.AdminAllowlistEmails))
	for _, email := range cfg.AdminAllowlistEmails {
		allowlist[strings.ToLower(strings.TrimSpace(email))] = struct{}{}
	}
	return &Service{
		secret:    []byte(cfg.AdminJWTSecret),
		allowlist: allowlist,
		logger:    log,
	}
}

// ValidateAdminToken parses and verifies a bearer token and checks the email
// claim against the allowlist. Expiry is enforced by the jwt library's
// registered-claims validation.
func (s *Service) ValidateAdminToken(ctx context.Context, tokenString string) (*AdminIdentity, error) {
	if len(s.secret) == 0 {
		s.logger.Error("Admin JWT secret not configured")
		return nil, errors.NewUnauthorized("Admin authentication not configured")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		s.logger.WithError(err).Debug("Failed to parse admin token")
		return nil, errors.NewUnauthorized("Invalid token")
	}
	if !token.Valid {
		return nil, errors.NewUnauthorized("Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.NewUnauthorized("Invalid token")
	}

	email := getStringClaim(claims, "email")
	if email == "" {
		return nil, errors.NewUnauthorized("Token has no email claim")
	}

	if _, allowed := s.allowlist[strings.ToLower(email)]; !allowed {
		s.logger.WithField("email", email).Warn("Admin access denied for email outside allowlist")
		return nil, errors.NewForbidden("Not an admin")
	}

	return &AdminIdentity{
		Subject: getStringClaim(claims, "sub"),
		Email:   email,
	}, nil
}

func getStringClaim(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key].(string); ok {
		return value
	}
	return ""
}
