package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/HabitLens/internal/util"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(testSecret, "user-42", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	userID, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("expected user-42, got %q", userID)
	}
}

func TestParseTokenRejects(t *testing.T) {
	wrongKey, _ := GenerateToken([]byte("other"), "u1", time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	expiredToken, _ := expired.SignedString(testSecret)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noUserToken, _ := noUser.SignedString(testSecret)

	for name, token := range map[string]string{
		"garbage":   "not.a.token",
		"wrong key": wrongKey,
		"expired":   expiredToken,
		"no user":   noUserToken,
	} {
		if _, err := ParseToken(testSecret, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserIDFromContext(r.Context())))
	})
}

func TestMiddlewareBearerToken(t *testing.T) {
	token, _ := GenerateToken(testSecret, "user-7", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	Middleware(testSecret, false)(echoUser()).ServeHTTP(rr, req)

	if rr.Body.String() != "user-7" {
		t.Errorf("expected user-7, got %q", rr.Body.String())
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Error("authenticated requests should not get a guest cookie")
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rr := httptest.NewRecorder()

	Middleware(testSecret, false)(echoUser()).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestMiddlewareGuestCookie(t *testing.T) {
	handler := Middleware(testSecret, true)(echoUser())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/chat/greeting", nil))
	issued := rr.Body.String()
	if !util.IsGuestID(issued) {
		t.Fatalf("expected a guest id, got %q", issued)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != GuestCookieName || cookies[0].Value != issued {
		t.Fatalf("expected guest cookie, got %+v", cookies)
	}
	if !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Error("guest cookie should be HttpOnly and Secure")
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/greeting", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: issued})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Body.String() != issued {
		t.Errorf("expected guest id to be reused, got %q", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/chat/greeting", nil)
	req.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "forged"})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Body.String() == "forged" || !util.IsGuestID(rr.Body.String()) {
		t.Errorf("expected malformed cookie to be replaced, got %q", rr.Body.String())
	}
}
