package shopserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"petshop/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ctxAccount = "account"

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(a *account) (string, error) {
	now := time.Now()
	c := claims{
		Role: a.role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.cfg.Secret)
}

func (s *Server) parseToken(raw string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// requireRole rejects requests without a valid bearer token (401) or whose
// role is not in roles (403). An empty roles list admits any signed-in user.
func (s *Server) requireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication required"})
			return
		}
		cl, err := s.parseToken(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}

		s.state.mu.Lock()
		a, found := s.state.accounts[cl.Subject]
		s.state.mu.Unlock()
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unknown user"})
			return
		}

		if len(roles) > 0 {
			allowed := false
			for _, r := range roles {
				if a.role == r {
					allowed = true
					break
				}
			}
			if !allowed {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied"})
				return
			}
		}
		c.Set(ctxAccount, a)
		c.Next()
	}
}

func currentAccount(c *gin.Context) *account {
	v, _ := c.Get(ctxAccount)
	a, _ := v.(*account)
	return a
}
