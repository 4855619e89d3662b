package session

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "session.claims"

// Attach verifies a bearer token when one is present and stores its claims on the
// gin context. Requests without a valid token pass through; handlers decide.
func Attach(s *Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s != nil {
			if tok := BearerToken(c.GetHeader("Authorization")); tok != "" {
				if claims, err := s.Verify(tok); err == nil {
					c.Set(claimsKey, claims)
				}
			}
		}
		c.Next()
	}
}

func FromGin(c *gin.Context) (Claims, bool) {
	if c == nil {
		return Claims{}, false
	}
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

func BearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
