package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/policy"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrUnknownRole  = errors.New("token carries no known role")
)

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (models.Caller, error)
}

// ===== CASDOOR =====

type casdoorAuthenticator struct {
	client *casdoorsdk.Client
}

// NewCasdoorAuthenticator verifies bearer tokens issued by casdoor.
func NewCasdoorAuthenticator(client *casdoorsdk.Client) Authenticator {
	return &casdoorAuthenticator{client: client}
}

func (a *casdoorAuthenticator) Authenticate(r *http.Request) (models.Caller, error) {
	token := bearerToken(r)
	if token == "" {
		return models.Caller{}, ErrMissingToken
	}

	claims, err := a.client.ParseJwtToken(token)
	if err != nil {
		return models.Caller{}, fmt.Errorf("invalid token: %w", err)
	}

	role, ok := roleFromClaims(claims)
	if !ok {
		return models.Caller{}, ErrUnknownRole
	}

	id := claims.User.Id
	if id == "" {
		id = claims.User.Owner + "/" + claims.User.Name
	}
	return models.Caller{ID: id, Role: role}, nil
}

// roleFromClaims prefers the admin flag, then the first assigned role this
// service knows, then the user tag.
func roleFromClaims(claims *casdoorsdk.Claims) (models.UserRole, bool) {
	if claims.User.IsAdmin {
		return models.RoleAdmin, true
	}
	for _, r := range claims.User.Roles {
		if r == nil {
			continue
		}
		if role := models.UserRole(strings.ToLower(r.Name)); models.ValidRole(role) {
			return role, true
		}
	}
	if role := models.UserRole(strings.ToLower(claims.User.Tag)); models.ValidRole(role) {
		return role, true
	}
	return "", false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// ===== HEADER =====

type headerAuthenticator struct{}

// NewHeaderAuthenticator trusts X-User-ID and X-User-Role. Development only.
func NewHeaderAuthenticator() Authenticator {
	return headerAuthenticator{}
}

func (headerAuthenticator) Authenticate(r *http.Request) (models.Caller, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if id == "" {
		return models.Caller{}, ErrMissingToken
	}
	role := models.UserRole(strings.ToLower(r.Header.Get("X-User-Role")))
	if !models.ValidRole(role) {
		return models.Caller{}, ErrUnknownRole
	}
	return models.Caller{ID: id, Role: role}, nil
}

// ===== MIDDLEWARE =====

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := auth.Authenticate(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
				Details: err.Error(),
			})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// RequireCapability rejects callers whose role lacks capability.
func RequireCapability(p *policy.Policy, capability policy.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "User not authenticated",
			})
			return
		}
		if err := p.Check(caller, capability); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message: "Access denied",
				Details: err.Error(),
				Code:    "Forbidden",
			})
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) (models.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return models.Caller{}, false
	}
	caller, ok := v.(models.Caller)
	return caller, ok
}
