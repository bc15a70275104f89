package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, role string, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "6f1c2a9e-4b7d-4a51-9d1e-0c3f5b7a9e21",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")
	defer SetJWTSecret("")

	r := gin.New()
	r.POST("/convert", RequirePermission(PermConvert), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("userID"))
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"wrong key", "Bearer " + signedToken(t, RoleAdmin, []byte("other")), http.StatusUnauthorized},
		{"missing permission", "Bearer " + signedToken(t, RoleAccountant, []byte("test-secret")), http.StatusForbidden},
		{"unknown role", "Bearer " + signedToken(t, "guest", []byte("test-secret")), http.StatusForbidden},
		{"inventory manager", "Bearer " + signedToken(t, RoleInventoryManager, []byte("test-secret")), http.StatusOK},
		{"admin", "Bearer " + signedToken(t, RoleAdmin, []byte("test-secret")), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/convert", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
			if tt.want == http.StatusOK && w.Body.String() == "" {
				t.Error("userID not set on context")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")
	defer SetJWTSecret("")

	r := gin.New()
	r.GET("/audit", RequireRole(RoleAdmin), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for role, want := range map[string]int{
		RoleAdmin:             http.StatusNoContent,
		RoleProductionManager: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: signedToken(t, role, []byte("test-secret"))})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%s: status = %d, want %d", role, w.Code, want)
		}
	}
}

func TestPermissionsForRole(t *testing.T) {
	admin := PermissionsForRole(RoleAdmin)
	found := false
	for _, p := range admin {
		if p == PermAuditRead {
			found = true
		}
	}
	if !found {
		t.Errorf("admin permissions %v lack %s", admin, PermAuditRead)
	}
	if len(PermissionsForRole("guest")) != 0 {
		t.Error("unknown role has permissions")
	}
	if !AllowWebsocketRole(RoleAccountant) || AllowWebsocketRole("guest") {
		t.Error("websocket role check")
	}
}
