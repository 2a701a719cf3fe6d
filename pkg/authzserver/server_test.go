package authzserver

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gemba/covid19-rest-server/pkg/oauth2"
	"github.com/labstack/echo/v4"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func newTestServer(t *testing.T) (*Server, jwk.Key) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	sigKey, err := jwk.FromRaw(privateKey)
	if err != nil {
		t.Fatalf("convert key to JWK: %v", err)
	}

	s, err := New(
		WithClients([]Client{{ClientID: "gemba", RedirectURI: "http://localhost:5000/callback"}}),
		WithUsers([]User{{Username: "user", Password: "pass"}}),
		WithSigningKey(sigKey),
	)
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	pubKey, err := sigKey.PublicKey()
	if err != nil {
		t.Fatalf("derive public key: %v", err)
	}

	return s, pubKey
}

func TestCheckAuthorizationRequest(t *testing.T) {
	s, _ := newTestServer(t)

	ok := &AuthorizationRequest{
		ResponseType:        "code",
		ClientID:            "gemba",
		RedirectURI:         "http://localhost:5000/callback",
		CodeChallenge:       "CCC",
		CodeChallengeMethod: "S256",
	}
	if err := s.CheckAuthorizationRequest(ok); err != nil {
		t.Fatalf("registered pair rejected: %v", err)
	}

	unknownClient := *ok
	unknownClient.ClientID = "nobody"
	if err := s.CheckAuthorizationRequest(&unknownClient); !errors.Is(err, ErrInvalidClient) {
		t.Fatalf("unknown client: got %v, want ErrInvalidClient", err)
	}

	wrongRedirect := *ok
	wrongRedirect.RedirectURI = "http://evil.example.com/callback"
	if err := s.CheckAuthorizationRequest(&wrongRedirect); !errors.Is(err, ErrInvalidClient) {
		t.Fatalf("unregistered redirect_uri: got %v, want ErrInvalidClient", err)
	}
}

func loginRequest(verifier string) *LoginRequest {
	return &LoginRequest{
		ClientID:            "gemba",
		RedirectURI:         "http://localhost:5000/callback",
		State:               "xyz",
		CodeChallenge:       oauth2.S256ChallengeFromVerifier(verifier),
		CodeChallengeMethod: "S256",
		Username:            "user",
		Password:            "pass",
	}
}

func TestLoginIssuesCode(t *testing.T) {
	s, _ := newTestServer(t)

	target, err := s.Login(loginRequest("test-verifier"))
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	redirect, err := url.Parse(target)
	if err != nil {
		t.Fatalf("parse redirect target: %v", err)
	}
	if got := redirect.Scheme + "://" + redirect.Host + redirect.Path; got != "http://localhost:5000/callback" {
		t.Fatalf("redirect target = %s, want the registered redirect_uri", got)
	}
	code := redirect.Query().Get("code")
	if code == "" {
		t.Fatal("redirect target has no code parameter")
	}
	if got := redirect.Query().Get("state"); got != "xyz" {
		t.Fatalf("state = %q, want xyz", got)
	}

	grant, err := s.LookupGrant(code)
	if err != nil {
		t.Fatalf("issued code not in store: %v", err)
	}
	if grant.ClientID != "gemba" || grant.CodeChallenge != oauth2.S256ChallengeFromVerifier("test-verifier") {
		t.Fatalf("stored grant does not match the login request: %+v", grant)
	}
}

func TestLoginStateSentinel(t *testing.T) {
	s, _ := newTestServer(t)

	for _, state := range []string{"", "undefined"} {
		req := loginRequest("test-verifier")
		req.State = state
		target, err := s.Login(req)
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		redirect, _ := url.Parse(target)
		if redirect.Query().Has("state") {
			t.Fatalf("state %q should not be appended to the redirect target", state)
		}
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	s, _ := newTestServer(t)

	for _, tc := range []struct{ username, password string }{
		{"user", "wrong"},
		{"nobody", "pass"},
	} {
		req := loginRequest("test-verifier")
		req.Username = tc.username
		req.Password = tc.password
		if _, err := s.Login(req); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %s/%s: got %v, want ErrInvalidCredentials", tc.username, tc.password, err)
		}
	}
}

func issueCode(t *testing.T, s *Server, verifier string) string {
	t.Helper()
	target, err := s.Login(loginRequest(verifier))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	redirect, _ := url.Parse(target)
	return redirect.Query().Get("code")
}

func postToken(t *testing.T, s *Server, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	s.MountRoutes(e.Group(""))

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func tokenForm(code, verifier string) url.Values {
	return url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {"http://localhost:5000/callback"},
		"client_id":     {"gemba"},
		"code_verifier": {verifier},
	}
}

func TestTokenEndpoint(t *testing.T) {
	s, pubKey := newTestServer(t)
	verifier := oauth2.GenerateCodeVerifier()
	code := issueCode(t, s, verifier)

	rec := postToken(t, s, tokenForm(code, verifier))
	if rec.Code != http.StatusOK {
		t.Fatalf("token exchange status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var response oauth2.TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if response.TokenType != "Bearer" {
		t.Fatalf("token_type = %q, want Bearer", response.TokenType)
	}

	token, err := jwt.Parse([]byte(response.AccessToken),
		jwt.WithKey(jwa.RS256, pubKey),
		jwt.WithIssuer(DefaultIssuer),
		jwt.WithValidate(true),
	)
	if err != nil {
		t.Fatalf("verify access token: %v", err)
	}
	if aud := token.Audience(); len(aud) != 1 || aud[0] != "gemba" {
		t.Fatalf("audience = %v, want [gemba]", aud)
	}
	if app, _ := token.Get("app"); app != AppClaim {
		t.Fatalf("app claim = %v, want %s", app, AppClaim)
	}
	if ttl := token.Expiration().Sub(token.IssuedAt()); ttl != 2*time.Hour {
		t.Fatalf("token lifetime = %s, want 2h", ttl)
	}
}

func TestTokenEndpointFailures(t *testing.T) {
	s, _ := newTestServer(t)
	verifier := oauth2.GenerateCodeVerifier()
	code := issueCode(t, s, verifier)

	badGrantType := tokenForm(code, verifier)
	badGrantType.Set("grant_type", "client_credentials")

	badClient := tokenForm(code, verifier)
	badClient.Set("client_id", "nobody")

	badRedirect := tokenForm(code, verifier)
	badRedirect.Set("redirect_uri", "http://evil.example.com/callback")

	tests := []struct {
		name     string
		form     url.Values
		status   int
		wantCode string
	}{
		{"unsupported grant type", badGrantType, http.StatusBadRequest, "unsupported_grant_type"},
		{"unknown code", tokenForm("no-such-code", verifier), http.StatusBadRequest, "invalid_code"},
		{"client mismatch", badClient, http.StatusBadRequest, "invalid_code"},
		{"redirect mismatch", badRedirect, http.StatusBadRequest, "invalid_code"},
		{"wrong verifier", tokenForm(code, oauth2.GenerateCodeVerifier()), http.StatusBadRequest, "invalid_code_verifier"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postToken(t, s, tc.form)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tc.status, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.wantCode) {
				t.Fatalf("body %s does not carry error code %s", rec.Body.String(), tc.wantCode)
			}
		})
	}
}

// Codes are deliberately not consumed at redemption: the reference behavior
// permits replay, and the store keeps the grant for the process lifetime.
func TestCodeReplayPermitted(t *testing.T) {
	s, _ := newTestServer(t)
	verifier := oauth2.GenerateCodeVerifier()
	code := issueCode(t, s, verifier)

	for i := 0; i < 2; i++ {
		rec := postToken(t, s, tokenForm(code, verifier))
		if rec.Code != http.StatusOK {
			t.Fatalf("redemption %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestJWKSEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	e := echo.New()
	s.MountRoutes(e.Group(""))

	req := httptest.NewRequest(http.MethodGet, "/jwks", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("jwks status = %d", rec.Code)
	}
	keys, err := jwk.Parse(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("parse jwks response: %v", err)
	}
	if keys.Len() != 1 {
		t.Fatalf("jwks has %d keys, want 1", keys.Len())
	}
}
