package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, secret, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatal("failed to sign token:", err)
	}
	return signed
}

func authRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/whoami", RequireAuth(secret), func(c *gin.Context) {
		identity, _ := c.Get(IdentityKey)
		c.String(http.StatusOK, identity.(string))
	})
	return r
}

// the verification secret comes from the constructor, not the environment
func TestRequireAuthUsesConfiguredSecret(t *testing.T) {
	r := authRouter("configured-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "configured-secret", "user-1"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Error("Expected 200, got", w.Code)
	}
	if w.Body.String() != "user-1" {
		t.Error("Expected identity user-1, got", w.Body.String())
	}
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	r := authRouter("configured-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other-secret", "user-1"))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Error("Expected 401, got", w.Code)
	}
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	r := authRouter("configured-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Error("Expected 401, got", w.Code)
	}
}

func TestAdminAuthDisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin", AdminAuth(""), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("X-Admin-Key", "anything")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Error("Expected 403, got", w.Code)
	}
}

func TestAdminAuthMatchesConfiguredKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin", AdminAuth("ops-key"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("X-Admin-Key", "ops-key")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Error("Expected 200, got", w.Code)
	}
}
