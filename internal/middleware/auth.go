package middleware

import (
	"net/http"
	"os"
	"strings"
	"sync"

	"textile-erp/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin             = "admin"
	RoleProductionManager = "production_manager"
	RoleInventoryManager  = "inventory_manager"
	RoleAccountant        = "accountant"
)

const (
	PermLedgersRead     = "ledgers.read"
	PermLedgersWrite    = "ledgers.write"
	PermProductionRead  = "production.read"
	PermProductionWrite = "production.write"
	PermInventoryRead   = "inventory.read"
	PermInventoryWrite  = "inventory.write"
	PermConvert         = "inventory.convert"
	PermAccountsRead    = "accounts.read"
	PermAccountsWrite   = "accounts.write"
	PermAnalyticsRead   = "analytics.read"
	PermAuditRead       = "audit.read"
)

// rolePermissions is fixed per deployment; admin passes every check
var rolePermissions = map[string][]string{
	RoleProductionManager: {
		PermLedgersRead, PermLedgersWrite,
		PermProductionRead, PermProductionWrite,
		PermInventoryRead, PermConvert,
		PermAnalyticsRead,
	},
	RoleInventoryManager: {
		PermLedgersRead,
		PermProductionRead,
		PermInventoryRead, PermInventoryWrite, PermConvert,
		PermAnalyticsRead,
	},
	RoleAccountant: {
		PermLedgersRead, PermLedgersWrite,
		PermProductionRead, PermInventoryRead,
		PermAccountsRead, PermAccountsWrite,
		PermAnalyticsRead,
	},
}

var (
	secretMu sync.RWMutex
	secret   []byte
)

// SetJWTSecret overrides the JWT_SECRET lookup, used by main with the loaded config
func SetJWTSecret(s string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	if s == "" {
		secret = nil
		return
	}
	secret = []byte(s)
}

func GetJWTSecret() []byte {
	secretMu.RLock()
	configured := secret
	secretMu.RUnlock()
	if configured != nil {
		return configured
	}

	s := os.Getenv("JWT_SECRET")
	if s == "" {
		if os.Getenv("GIN_MODE") == "release" {
			panic("FATAL: JWT_SECRET environment variable is required in production mode")
		}
		s = "default_super_secret_key" // development only
	}
	return []byte(s)
}

// PermissionsForRole lists the permission codes granted to role
func PermissionsForRole(role string) []string {
	if role == RoleAdmin {
		var all []string
		seen := map[string]bool{}
		for _, perms := range rolePermissions {
			for _, p := range perms {
				if !seen[p] {
					seen[p] = true
					all = append(all, p)
				}
			}
		}
		return append(all, PermAuditRead)
	}
	return rolePermissions[role]
}

func hasPermission(role, perm string) bool {
	if role == RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// AllowWebsocketRole admits every known role to the live event stream
func AllowWebsocketRole(role string) bool {
	if role == RoleAdmin {
		return true
	}
	_, ok := rolePermissions[role]
	return ok
}

// authenticate reads the token from the access_token cookie or the Authorization header,
// verifies it and stores userID/userRole on the context. It aborts and returns false on failure.
func authenticate(c *gin.Context) (string, bool) {
	tokenString, cookieErr := c.Cookie("access_token")
	if cookieErr != nil || tokenString == "" {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return "", false
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
			return "", false
		}
		tokenString = parts[1]
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return "", false
	}
	userRole, ok := claims["role"].(string)
	if !ok {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
		return "", false
	}

	sub, _ := claims["sub"].(string)
	c.Set("userID", sub)
	c.Set("userRole", userRole)
	return userRole, true
}

// RequireRole validates the JWT token and checks the user's role is one of allowedRoles
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := authenticate(c)
		if !ok {
			return
		}
		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// RequirePermission validates the JWT and checks the user's role grants every required permission
func RequirePermission(requiredPerms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := authenticate(c)
		if !ok {
			return
		}
		for _, required := range requiredPerms {
			if !hasPermission(userRole, required) {
				c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: missing permission '"+required+"'"))
				return
			}
		}
		c.Next()
	}
}
