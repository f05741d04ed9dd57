package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-kardex/internal/application/dto"
	apphttp "github.com/jhoicas/inventario-kardex/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/inventario-kardex/pkg/jwt"
)

const (
	authSecret  = "kardex-secret-de-pruebas"
	authIssuer  = "inventario-kardex-test"
	authUser    = "u-bodega-1"
	authCompany = "c-ferreteria-1"
)

func bearer(t *testing.T, secret, companyID, role string, expMinutes int) string {
	t.Helper()
	tok, err := pkgjwt.Generate(secret, authUser, companyID, role, authIssuer, expMinutes)
	require.NoError(t, err)
	return "Bearer " + tok
}

// guarded monta una ruta con AuthMiddleware + RequireRole que devuelve los locals del token.
func guarded(issuer string, roles ...string) *fiber.App {
	app := fiber.New()
	app.Get("/kardex",
		apphttp.AuthMiddleware(authSecret, issuer),
		apphttp.RequireRole(roles...),
		func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"user_id":    apphttp.GetUserID(c),
				"company_id": apphttp.GetCompanyID(c),
				"role":       apphttp.GetRole(c),
			})
		},
	)
	return app
}

func get(t *testing.T, app *fiber.App, authorization string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/kardex", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func TestAuthMiddleware_TokenRechazado(t *testing.T) {
	app := guarded(authIssuer, pkgjwt.RoleAdmin)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{"sin header", "", "MISSING_TOKEN"},
		{"esquema distinto", "Basic dXNlcjpwYXNz", "INVALID_TOKEN"},
		{"bearer vacío", "Bearer   ", "MISSING_TOKEN"},
		{"bearer sin token", "Bearer", "MISSING_TOKEN"},
		{"bearer en minúsculas sin token", "bearer", "MISSING_TOKEN"},
		{"firma con otro secreto", bearer(t, "otro-secreto", authCompany, pkgjwt.RoleAdmin, 60), "INVALID_TOKEN"},
		{"expirado", bearer(t, authSecret, authCompany, pkgjwt.RoleAdmin, -1), "INVALID_TOKEN"},
		{"sin empresa", bearer(t, authSecret, "", pkgjwt.RoleAdmin, 60), "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := get(t, app, tc.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			var e dto.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tc.code, e.Code)
		})
	}
}

func TestAuthMiddleware_EmisorDistinto(t *testing.T) {
	status, _ := get(t, guarded("otro-emisor", pkgjwt.RoleAdmin), bearer(t, authSecret, authCompany, pkgjwt.RoleAdmin, 60))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAuthMiddleware_CargaClaimsEnLocals(t *testing.T) {
	status, body := get(t, guarded(authIssuer, pkgjwt.RoleBodeguero), bearer(t, authSecret, authCompany, pkgjwt.RoleBodeguero, 60))
	require.Equal(t, http.StatusOK, status)

	var got map[string]string
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, authUser, got["user_id"])
	assert.Equal(t, authCompany, got["company_id"])
	assert.Equal(t, pkgjwt.RoleBodeguero, got["role"])
}

// Matriz de permisos de los grupos de rutas del inventario.
func TestRequireRole_MatrizInventario(t *testing.T) {
	groups := map[string][]string{
		"existencias": {pkgjwt.RoleAdmin, pkgjwt.RoleBodeguero},
		"ventas":      {pkgjwt.RoleAdmin, pkgjwt.RoleVendedor},
		"admin":       {pkgjwt.RoleAdmin},
	}
	want := map[string]map[string]int{
		"existencias": {pkgjwt.RoleAdmin: 200, pkgjwt.RoleBodeguero: 200, pkgjwt.RoleVendedor: 403},
		"ventas":      {pkgjwt.RoleAdmin: 200, pkgjwt.RoleBodeguero: 403, pkgjwt.RoleVendedor: 200},
		"admin":       {pkgjwt.RoleAdmin: 200, pkgjwt.RoleBodeguero: 403, pkgjwt.RoleVendedor: 403},
	}
	for group, roles := range groups {
		app := guarded(authIssuer, roles...)
		for role, status := range want[group] {
			got, _ := get(t, app, bearer(t, authSecret, authCompany, role, 60))
			assert.Equal(t, status, got, "grupo %s, rol %s", group, role)
		}
	}
}

func TestRequireRole_TokenSinRol(t *testing.T) {
	status, body := get(t, guarded(authIssuer, pkgjwt.RoleAdmin), bearer(t, authSecret, authCompany, "", 60))
	assert.Equal(t, http.StatusUnauthorized, status)
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	assert.Equal(t, "MISSING_ROLE", e.Code)
}
