package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/careerpath-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/yungbote/careerpath-backend/internal/pkg/errors"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

// AuthService verifies bearer tokens issued by the identity provider.
// Issuing, refreshing and revoking tokens happen elsewhere.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type AuthConfig struct {
	SecretKey string
	// Issuer and Audience are checked only when non-empty.
	Issuer   string
	Audience string
}

type sessionClaims struct {
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

type authService struct {
	log    *logger.Logger
	secret []byte
	parser *jwt.Parser
}

func NewAuthService(log *logger.Logger, cfg AuthConfig) (AuthService, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, fmt.Errorf("missing JWT_SECRET_KEY")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &authService{
		log:    log.With("service", "AuthService"),
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, pkgerrors.ErrUnauthorized
	}
	claims := &sessionClaims{}
	_, err := as.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return as.secret, nil
	})
	if err != nil {
		as.log.Debug("token rejected", "error", err)
		return ctx, fmt.Errorf("%w: %v", pkgerrors.ErrUnauthorized, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, fmt.Errorf("%w: invalid subject", pkgerrors.ErrUnauthorized)
	}
	rd := &ctxutil.RequestData{TokenString: tokenString, UserID: userID}
	if sid, err := uuid.Parse(claims.SessionID); err == nil {
		rd.SessionID = sid
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}
