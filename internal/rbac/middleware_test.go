package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"invoice-console/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(role string, allowed ...string) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			ctx := auth.WithIdentity(c.Request.Context(), "u", role)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}, RequireAnyRole(allowed...), func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serve(RoleAdmin, RoleFinance); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_AllowsListedRole(t *testing.T) {
	if code := serve(RoleFinance, RoleFinance); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DeniesOtherRoles(t *testing.T) {
	if code := serve(RoleStaff, RoleFinance); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := serve("root", "root"); code != 403 {
		t.Fatalf("expected 403 for unknown role, got %d", code)
	}
}

func TestRequireAnyRole_MissingRole(t *testing.T) {
	if code := serve("", RoleStaff); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
