package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestHandler(t *testing.T) (http.Handler, *memStore) {
	t.Helper()
	svc, data := newTestService(t)
	return NewHTTPServer(svc, "*").Handler(), data
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	payload := map[string]any{}
	_ = json.Unmarshal(recorder.Body.Bytes(), &payload)
	return recorder, payload
}

func signUpAndIn(t *testing.T, handler http.Handler, email, name, role string) string {
	t.Helper()

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":       email,
		"password":    "password123",
		"displayName": name,
		"phone":       "+91-9000000000",
		"role":        role,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", email, recorder.Code, recorder.Body.String())
	}
	verificationToken, _ := payload["devVerificationToken"].(string)
	if verificationToken == "" {
		t.Fatal("expected dev verification token when SMTP is unconfigured")
	}

	recorder, _ = doJSON(t, handler, http.MethodPost, "/api/auth/verify-email", "", map[string]any{"token": verificationToken})
	if recorder.Code != http.StatusOK {
		t.Fatalf("verify email: status %d", recorder.Code)
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]any{
		"email":    email,
		"password": "password123",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("signin %s: status %d body %s", email, recorder.Code, recorder.Body.String())
	}
	return payload["accessToken"].(string)
}

func TestHTTPDealLifecycle(t *testing.T) {
	handler, _ := newTestHandler(t)

	ownerToken := signUpAndIn(t, handler, "priya@example.com", "Priya", "GENERAL_USER")
	providerToken := signUpAndIn(t, handler, "ravi@example.com", "Ravi", "BROKER")

	recorder, payload := doJSON(t, handler, http.MethodPost, "/api/concerns", ownerToken, map[string]any{
		"text": "My motor claim has been pending for two months",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("submit concern: status %d body %s", recorder.Code, recorder.Body.String())
	}
	concernID := payload["concern"].(map[string]any)["id"].(string)

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/concerns/"+concernID+"/comments", providerToken, map[string]any{
		"content":    "I can chase this with the insurer.",
		"isProposal": true,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("proposal: status %d body %s", recorder.Code, recorder.Body.String())
	}
	commentID := payload["comment"].(map[string]any)["id"].(string)

	recorder, payload = doJSON(t, handler, http.MethodGet, "/api/concerns/"+concernID, providerToken, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("provider read: status %d", recorder.Code)
	}
	if payload["concern"].(map[string]any)["ownerName"] != "Anonymous" {
		t.Errorf("owner must stay anonymous to providers, got %v", payload["concern"].(map[string]any)["ownerName"])
	}

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/concerns/"+concernID+"/accept", ownerToken, map[string]any{
		"commentId": commentID,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("accept step one: status %d body %s", recorder.Code, recorder.Body.String())
	}
	confirmToken := payload["confirmToken"].(string)

	recorder, payload = doJSON(t, handler, http.MethodPost, "/api/concerns/"+concernID+"/accept/confirm", ownerToken, map[string]any{
		"confirmToken": confirmToken,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("accept confirm: status %d body %s", recorder.Code, recorder.Body.String())
	}
	if payload["concern"].(map[string]any)["status"] != "PENDING_VERIFICATION" {
		t.Fatalf("expected PENDING_VERIFICATION, got %v", payload["concern"])
	}

	// The provider cannot accept, verify, or resolve.
	recorder, _ = doJSON(t, handler, http.MethodPost, "/api/concerns/"+concernID+"/verify", providerToken, nil)
	if recorder.Code != http.StatusForbidden {
		t.Errorf("provider verify should be 403, got %d", recorder.Code)
	}
}

func TestHTTPRequiresAuth(t *testing.T) {
	handler, _ := newTestHandler(t)

	recorder, _ := doJSON(t, handler, http.MethodGet, "/api/concerns", "", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", recorder.Code)
	}

	recorder, _ = doJSON(t, handler, http.MethodGet, "/api/concerns", "not-a-token", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bad token, got %d", recorder.Code)
	}

	recorder, _ = doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Errorf("health should be public, got %d", recorder.Code)
	}
}

func TestHTTPSignupDemotesAdminRole(t *testing.T) {
	handler, data := newTestHandler(t)

	token := signUpAndIn(t, handler, "sneaky@example.com", "Sneaky", "ADMIN")

	recorder, payload := doJSON(t, handler, http.MethodGet, "/api/me", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("profile: status %d", recorder.Code)
	}
	if payload["role"] != "GENERAL_USER" {
		t.Errorf("self-signup as admin must be demoted, got %v", payload["role"])
	}

	for _, user := range data.users {
		if user.Role == "ADMIN" {
			t.Error("no admin user should exist after self-signup")
		}
	}
}

func TestHTTPSearchValidation(t *testing.T) {
	handler, _ := newTestHandler(t)
	token := signUpAndIn(t, handler, "priya@example.com", "Priya", "GENERAL_USER")

	recorder, _ := doJSON(t, handler, http.MethodGet, "/api/search?q=claim&limit=abc", token, nil)
	if recorder.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for bad limit, got %d", recorder.Code)
	}

	recorder, payload := doJSON(t, handler, http.MethodGet, "/api/search?q=claim", token, nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("search: status %d", recorder.Code)
	}
	if payload["query"] != "claim" {
		t.Errorf("unexpected search payload %v", payload)
	}
}
