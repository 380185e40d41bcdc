package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/careerpath-backend/internal/pkg/ctxutil"
	pkgerrors "github.com/yungbote/careerpath-backend/internal/pkg/errors"
	"github.com/yungbote/careerpath-backend/internal/pkg/logger"
)

type stubAuth struct {
	userID uuid.UUID
	seen   string
}

func (s *stubAuth) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	s.seen = tokenString
	if tokenString != "good" {
		return ctx, pkgerrors.ErrUnauthorized
	}
	return ctxutil.WithRequestData(ctx, &ctxutil.RequestData{TokenString: tokenString, UserID: s.userID}), nil
}

func authRouter(auth *stubAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAuthMiddleware(logger.Nop(), auth).RequireAuth())
	r.GET("/api/me", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer", "Bearer good", "", http.StatusOK},
		{"lowercase_scheme", "bearer good", "", http.StatusOK},
		{"query_token", "", "good", http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"bad_token", "Bearer bad", "", http.StatusUnauthorized},
		{"not_bearer", "Basic good", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := authRouter(&stubAuth{userID: userID})
			target := "/api/me"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tc.want, rec.Body.String())
			}
			if tc.want == http.StatusOK && rec.Body.String() != userID.String() {
				t.Fatalf("handler saw user %q", rec.Body.String())
			}
		})
	}
}

func TestRequireAuthPrefersHeader(t *testing.T) {
	auth := &stubAuth{userID: uuid.New()}
	r := authRouter(auth)
	req := httptest.NewRequest(http.MethodGet, "/api/me?token=bad", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || auth.seen != "good" {
		t.Fatalf("status=%d seen=%q", rec.Code, auth.seen)
	}
}
