package http

import (
	"net/http"
	"testing"
)

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/register", "", registerRequest{
		Name:         "Mario Rossi",
		Organization: "Rossi SRL",
		Email:        "Mario@Example.com",
		Password:     "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("expected a token")
	}
	if resp.User.Email != "mario@example.com" {
		t.Errorf("Email = %q, want lowercased mario@example.com", resp.User.Email)
	}

	// Same address with different casing is still taken.
	rec = doRequest(t, s, http.MethodPost, "/api/register", "", registerRequest{
		Name:     "Impostor",
		Email:    "MARIO@example.com",
		Password: "another-pass",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  registerRequest
		want int
	}{
		{"missing email", registerRequest{Name: "Mario", Password: "correct-horse"}, http.StatusUnprocessableEntity},
		{"missing name", registerRequest{Email: "m@example.com", Password: "correct-horse"}, http.StatusUnprocessableEntity},
		{"short password", registerRequest{Name: "Mario", Email: "m@example.com", Password: "short"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/register", "", tt.req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	registerUser(t, s, "mario@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/login", "", loginRequest{
		Email:    "mario@example.com",
		Password: "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("expected a token")
	}

	// Wrong password and unknown email must be indistinguishable.
	for _, req := range []loginRequest{
		{Email: "mario@example.com", Password: "wrong-pass-123"},
		{Email: "nobody@example.com", Password: "correct-horse"},
	} {
		rec := doRequest(t, s, http.MethodPost, "/api/login", "", req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("login %s status = %d, want 401", req.Email, rec.Code)
		}
		var errResp errorResponse
		decodeBody(t, rec, &errResp)
		if errResp.Error != "invalid credentials" {
			t.Errorf("login %s error = %q, want generic message", req.Email, errResp.Error)
		}
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	token := registerUser(t, s, "mario@example.com")

	rec := doRequest(t, s, http.MethodPost, "/api/change-password", token, changePasswordRequest{
		CurrentPassword: "wrong-pass-123",
		NewPassword:     "new-password-1",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("change with wrong current status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/change-password", token, changePasswordRequest{
		CurrentPassword: "correct-horse",
		NewPassword:     "new-password-1",
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("change password status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodPost, "/api/login", "", loginRequest{
		Email: "mario@example.com", Password: "correct-horse",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login with old password status = %d, want 401", rec.Code)
	}
	rec = doRequest(t, s, http.MethodPost, "/api/login", "", loginRequest{
		Email: "mario@example.com", Password: "new-password-1",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password status = %d, want 200", rec.Code)
	}
}
