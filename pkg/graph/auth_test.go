package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/theapemachine/mcp-wrappers/pkg/errors"
	"golang.org/x/oauth2"
)

func accessToken(user string) string {
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"upn": user,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))

	return token
}

func newMockAuthority(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/tenant/oauth2/v2.0/devicecode", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"device_code":      "dev-code",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://microsoft.com/devicelogin",
			"expires_in":       60,
			"interval":         1,
		})
	})

	mux.HandleFunc("/tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		user := "device@example.com"

		if r.Form.Get("grant_type") == "refresh_token" {
			user = "refreshed@example.com"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  accessToken(user),
			"token_type":    "Bearer",
			"refresh_token": "refresh",
			"expires_in":    3600,
		})
	})

	return httptest.NewServer(mux)
}

func testConfig(authority string, t *testing.T) Config {
	return Config{
		Authority: authority,
		TenantID:  "tenant",
		ClientID:  "client",
		TokenFile: filepath.Join(t.TempDir(), "graph_token.json"),
	}
}

func TestLogin(t *testing.T) {
	Convey("Given a device-code authority", t, func() {
		srv := newMockAuthority(t)
		defer srv.Close()

		authenticator := NewAuthenticator(testConfig(srv.URL, t))

		Convey("When the user completes the login", func() {
			var prompted *oauth2.DeviceAuthResponse

			tok, err := authenticator.Login(context.Background(), func(device *oauth2.DeviceAuthResponse) {
				prompted = device
			})

			Convey("Then the token is cached with owner-only permissions", func() {
				So(err, ShouldBeNil)
				So(prompted.UserCode, ShouldEqual, "ABCD-EFGH")
				So(tok.RefreshToken, ShouldEqual, "refresh")

				info, statErr := os.Stat(authenticator.Store().Path())
				So(statErr, ShouldBeNil)
				So(info.Mode().Perm(), ShouldEqual, os.FileMode(0o600))

				status, statusErr := authenticator.Status()
				So(statusErr, ShouldBeNil)
				So(status.SignedIn, ShouldBeTrue)
				So(status.Refreshable, ShouldBeTrue)
				So(status.Claims.User, ShouldEqual, "device@example.com")
			})
		})
	})

	Convey("Given no client id", t, func() {
		_, err := NewAuthenticator(Config{TokenFile: filepath.Join(t.TempDir(), "t.json")}).
			Login(context.Background(), nil)

		var missing *errors.MissingCredentialError

		So(errors.As(err, &missing), ShouldBeTrue)
	})
}

func TestTokenSource(t *testing.T) {
	Convey("Given an expired cached token", t, func() {
		srv := newMockAuthority(t)
		defer srv.Close()

		authenticator := NewAuthenticator(testConfig(srv.URL, t))

		So(authenticator.Store().Save(&oauth2.Token{
			AccessToken:  accessToken("stale@example.com"),
			RefreshToken: "refresh",
			Expiry:       time.Now().Add(-time.Minute),
		}), ShouldBeNil)

		Convey("When a token is requested", func() {
			source, err := authenticator.TokenSource(context.Background())
			So(err, ShouldBeNil)

			tok, err := source.Token()

			Convey("Then it is refreshed and persisted", func() {
				So(err, ShouldBeNil)

				status, _ := authenticator.Status()
				So(status.Claims.User, ShouldEqual, "refreshed@example.com")
				So(status.Expired, ShouldBeFalse)

				cached, _ := authenticator.Store().Load()
				So(cached.AccessToken, ShouldEqual, tok.AccessToken)
			})
		})
	})

	Convey("Given no cached token", t, func() {
		authenticator := NewAuthenticator(testConfig("http://127.0.0.1:1", t))

		_, err := authenticator.TokenSource(context.Background())
		So(err, ShouldNotBeNil)

		status, err := authenticator.Status()
		So(err, ShouldBeNil)
		So(status.SignedIn, ShouldBeFalse)
	})
}

func TestLazySource(t *testing.T) {
	Convey("Given a server started before login", t, func() {
		srv := newMockAuthority(t)
		defer srv.Close()

		authenticator := NewAuthenticator(testConfig(srv.URL, t))
		source := authenticator.LazySource(context.Background())

		_, err := source.Token()
		So(err, ShouldNotBeNil)

		Convey("When the user signs in afterwards", func() {
			So(authenticator.Store().Save(&oauth2.Token{
				AccessToken: accessToken("late@example.com"),
				Expiry:      time.Now().Add(time.Hour),
			}), ShouldBeNil)

			tok, err := source.Token()

			Convey("Then the cached token is picked up", func() {
				So(err, ShouldBeNil)
				So(tok.AccessToken, ShouldNotBeEmpty)
			})
		})
	})
}
