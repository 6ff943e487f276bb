package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		role       string
		setRole    bool
		wantStatus int
	}{
		{"matching role passes", "admin", true, http.StatusOK},
		{"other role is forbidden", "student", true, http.StatusForbidden},
		{"missing role is unauthorized", "", false, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			if tc.setRole {
				r.Use(func(c *gin.Context) {
					c.Set("role", tc.role)
					c.Next()
				})
			}
			r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/admin", nil)

			r.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
		})
	}
}

func TestGetAuthenticatedUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := GetAuthenticatedUserID(c); ok {
		t.Fatal("expected no account ID on a bare context")
	}

	c.Set(UserIDKey, "account-1")
	id, ok := GetAuthenticatedUserID(c)
	if !ok || id != "account-1" {
		t.Fatalf("expected account-1, got %q (ok=%v)", id, ok)
	}
}
