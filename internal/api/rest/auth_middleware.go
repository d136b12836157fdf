package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
)

type contextKey string

const contextKeyClaims contextKey = "auth_claims"

// Claims carries the authenticated identity. AgeVerified gates bidding;
// viewing never requires authentication.
type Claims struct {
	jwt.RegisteredClaims
	UserID      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	AgeVerified bool      `json:"age_verified"`
}

// AuthMiddleware validates HS256 bearer tokens
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates the JWT middleware
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// Authenticate attaches claims when a valid token is present and lets the
// request through regardless. Handlers that need identity use
// RequireClaims.
func (a *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, err := a.parse(r); err == nil {
			r = r.WithContext(context.WithValue(r.Context(), contextKeyClaims, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without a valid token
func (a *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.parse(r)
		if err != nil {
			writeError(w, errors.NewUnauthorizedError("authentication required"))
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AuthMiddleware) parse(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, errors.NewUnauthorizedError("authorization required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.NewUnauthorizedError("invalid authorization format")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewUnauthorizedError("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.NewUnauthorizedError("invalid token")
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.NewUnauthorizedError("token missing user identity")
	}
	return claims, nil
}

// IssueToken mints a token for the given identity (login flows, tests)
func (a *AuthMiddleware) IssueToken(userID uuid.UUID, role string, ageVerified bool, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		UserID:      userID,
		Role:        role,
		AgeVerified: ageVerified,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// ClaimsFromContext extracts the authenticated identity, if any
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKeyClaims).(*Claims)
	return claims, ok
}

// Identity adapts the middleware for WebSocket upgrades, where identity is
// optional and may arrive as a query parameter because browsers cannot set
// headers on upgrade requests.
func (a *AuthMiddleware) Identity(r *http.Request) (uuid.UUID, bool) {
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims.UserID, true
	}
	if token := r.URL.Query().Get("token"); token != "" {
		r2 := r.Clone(r.Context())
		r2.Header.Set("Authorization", "Bearer "+token)
		if claims, err := a.parse(r2); err == nil {
			return claims.UserID, true
		}
	}
	return uuid.Nil, false
}

func roleFromClaims(claims *Claims) bidding.Role {
	switch claims.Role {
	case string(bidding.RoleAdmin):
		return bidding.RoleAdmin
	case string(bidding.RoleSeller):
		return bidding.RoleSeller
	default:
		return bidding.RoleBidder
	}
}
