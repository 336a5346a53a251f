package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGetIdentity_FromAuthenticatedContext(t *testing.T) {
	userID := uuid.New()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ContextUserIDKey, userID)
	c.Set(ContextRolesKey, []string{"admin", "sales"})

	who := GetIdentity(c)
	if !who.IsAuthenticated() {
		t.Fatal("expected authenticated identity")
	}
	if who.UserID() != userID {
		t.Fatalf("expected user %s, got %s", userID, who.UserID())
	}
	if !who.HasRole("admin") || !who.HasRole("sales") {
		t.Fatalf("roles lost: %v", who.Roles())
	}
	if who.HasRole("finance") {
		t.Fatal("unexpected role match")
	}
}

func TestGetIdentity_MissingUserIsUnauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	who := GetIdentity(c)
	if who.IsAuthenticated() {
		t.Fatal("expected unauthenticated identity without context keys")
	}
	if who.HasRole("admin") {
		t.Fatal("unauthenticated identity must have no roles")
	}
}

func TestRequireRole_GatesByIdentity(t *testing.T) {
	cases := []struct {
		name   string
		roles  []string
		status int
	}{
		{"with role", []string{"admin"}, http.StatusOK},
		{"without role", []string{"sales"}, http.StatusForbidden},
		{"no roles", nil, http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				c.Set(ContextUserIDKey, uuid.New())
				if tc.roles != nil {
					c.Set(ContextRolesKey, tc.roles)
				}
			})
			r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
			if w.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, w.Code)
			}
		})
	}
}

func TestRequireRole_RejectsUnauthenticated(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without identity, got %d", w.Code)
	}
}
