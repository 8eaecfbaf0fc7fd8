package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "doctor", "patient", "receptionist", "nurse", "pharmacist", "accountant", "lab_tech"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("ParseRole(%q): unexpected error %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "superuser", "Doctor", "nurse "} {
		if _, err := ParseRole(invalid); err == nil {
			t.Errorf("ParseRole(%q): expected error", invalid)
		}
	}
}

func TestRole_IsStaff(t *testing.T) {
	if RolePatient.IsStaff() {
		t.Error("patient should not be staff")
	}
	if !RoleNurse.IsStaff() {
		t.Error("nurse should be staff")
	}
	if Role("bogus").IsStaff() {
		t.Error("unknown role should not be staff")
	}
}

func TestActorContext_RoundTrip(t *testing.T) {
	actor := Actor{UserID: uuid.New(), Role: RoleDoctor}
	ctx := ContextWithActor(context.Background(), actor)

	got, ok := ActorFromContext(ctx)
	if !ok {
		t.Fatal("expected actor in context")
	}
	if got.UserID != actor.UserID || got.Role != actor.Role {
		t.Errorf("actor mismatch: %+v", got)
	}

	if _, ok := ActorFromContext(context.Background()); ok {
		t.Error("expected no actor in empty context")
	}
}

func signToken(t *testing.T, secret []byte, subject, role string) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func invokeWithAuth(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (int, Actor) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen Actor
	handler := mw(func(c echo.Context) error {
		seen, _ = ActorFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	err := handler(c)
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he.Code, seen
		}
		t.Fatalf("unexpected error type: %v", err)
	}
	return rec.Code, seen
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	secret := []byte("test-secret")
	userID := uuid.New()
	token := signToken(t, secret, userID.String(), "doctor")

	code, actor := invokeWithAuth(t, JWTMiddleware(secret), "Bearer "+token)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if actor.UserID != userID {
		t.Errorf("expected user id %s, got %s", userID, actor.UserID)
	}
	if actor.Role != RoleDoctor {
		t.Errorf("expected doctor role, got %s", actor.Role)
	}
}

func TestJWTMiddleware_Rejections(t *testing.T) {
	secret := []byte("test-secret")

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"wrong secret", "Bearer " + signToken(t, []byte("other"), uuid.New().String(), "doctor")},
		{"unknown role", "Bearer " + signToken(t, secret, uuid.New().String(), "superuser")},
		{"non-uuid subject", "Bearer " + signToken(t, secret, "user-42", "doctor")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := invokeWithAuth(t, JWTMiddleware(secret), tt.header)
			if code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	invoke := func(actor *Actor, mw echo.MiddlewareFunc) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if actor != nil {
			req = req.WithContext(ContextWithActor(req.Context(), *actor))
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
		if err != nil {
			if he, ok := err.(*echo.HTTPError); ok {
				return he.Code
			}
		}
		return rec.Code
	}

	doctor := &Actor{UserID: uuid.New(), Role: RoleDoctor}
	patient := &Actor{UserID: uuid.New(), Role: RolePatient}
	admin := &Actor{UserID: uuid.New(), Role: RoleAdmin}

	if code := invoke(doctor, RequireRole(RoleDoctor)); code != http.StatusOK {
		t.Errorf("doctor should pass doctor gate, got %d", code)
	}
	if code := invoke(patient, RequireRole(RoleDoctor)); code != http.StatusForbidden {
		t.Errorf("patient should fail doctor gate, got %d", code)
	}
	if code := invoke(admin, RequireRole(RoleDoctor)); code != http.StatusOK {
		t.Errorf("admin should pass any gate, got %d", code)
	}
	if code := invoke(nil, RequireRole(RoleDoctor)); code != http.StatusUnauthorized {
		t.Errorf("missing actor should be 401, got %d", code)
	}
	if code := invoke(patient, RequireStaff()); code != http.StatusForbidden {
		t.Errorf("patient should fail staff gate, got %d", code)
	}
	if code := invoke(doctor, RequireStaff()); code != http.StatusOK {
		t.Errorf("doctor should pass staff gate, got %d", code)
	}
}
