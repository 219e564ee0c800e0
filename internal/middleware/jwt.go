package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-adaptive/internal/response"
	"github.com/stemsi/exstem-adaptive/internal/service"
)

const (
	// ContextKeyClaims is the Gin context key for JWT claims.
	ContextKeyClaims = "claims"
)

var errTokenMissing = errors.New("authorization header or token query required")

// RequireStudentJWT accepts only student tokens.
func RequireStudentJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireJWT(authService, response.ErrStudentAccessOnly, service.TokenTypeStudent)
}

// RequireProctorJWT accepts only proctor tokens.
func RequireProctorJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireJWT(authService, response.ErrProctorAccessOnly, service.TokenTypeProctor)
}

// RequireAnyJWT accepts student and proctor tokens. Handlers decide what
// each may see.
func RequireAnyJWT(authService *service.AuthService) gin.HandlerFunc {
	return requireJWT(authService, response.ErrForbidden, service.TokenTypeStudent, service.TokenTypeProctor)
}

func requireJWT(authService *service.AuthService, deny response.ErrCode, allowed ...service.TokenType) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractAndValidateClaims(c, authService)
		if errors.Is(err, errTokenMissing) {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		for _, t := range allowed {
			if claims.TokenType == t {
				c.Set(ContextKeyClaims, claims)
				c.Next()
				return
			}
		}
		response.AbortFail(c, http.StatusForbidden, deny)
	}
}

// GetClaims retrieves the JWT claims from the Gin context.
func GetClaims(c *gin.Context) *service.Claims {
	val, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	claims, ok := val.(*service.Claims)
	if !ok {
		return nil
	}
	return claims
}

// Viewer converts the request claims into a session viewer.
func Viewer(c *gin.Context) service.Viewer {
	claims := GetClaims(c)
	if claims == nil {
		return service.Viewer{}
	}
	if claims.TokenType == service.TokenTypeProctor {
		return service.Viewer{Proctor: true}
	}
	return service.Viewer{StudentID: claims.Subject}
}

func extractAndValidateClaims(c *gin.Context, authService *service.AuthService) (*service.Claims, error) {
	tokenStr := ""

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			tokenStr = parts[1]
		}
	}

	// EventSource and WebSocket clients cannot send headers.
	if tokenStr == "" {
		tokenStr = c.Query("token")
	}

	if tokenStr == "" {
		return nil, errTokenMissing
	}

	return authService.ValidateToken(tokenStr)
}
