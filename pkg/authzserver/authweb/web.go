// Package authweb serves the browser-facing pages of the authorization flow:
// the login challenge, the local demo flow, the callback page and the error
// page. Templates are embedded so the server binary is self-contained.
package authweb

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gemba/covid19-rest-server/pkg/authzserver"
	"github.com/labstack/echo/v4"
)

var (
	//go:embed *.html
	templatesFS embed.FS
)

func MountRoutes(g *echo.Group, as *authzserver.Server) {
	g.Use(authzserver.ErrorLogMiddleware)
	g.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/index")
	})
	g.GET("/index", index())
	g.GET("/top", top())
	g.GET("/auth", authorize(as))
	g.GET("/auth_local", authorizeLocal(as))
	g.POST("/login", login(as))
	g.GET("/callback", callback(as))
}

var errorTemplate = template.Must(template.ParseFS(templatesFS, "error.html"))

// renderError renders the generic failure surface: a title, the numeric
// status and a message. Internal causes never reach this page.
func renderError(c echo.Context, status int, title, message string) error {
	buf := bytes.Buffer{}
	err := errorTemplate.Execute(&buf, map[string]interface{}{
		"Title":   title,
		"Status":  status,
		"Message": message,
	})
	if err != nil {
		return err
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func renderAuthzError(c echo.Context, err error) error {
	var authzErr *authzserver.Error
	if errors.As(err, &authzErr) {
		return renderError(c, authzErr.HTTPStatus, "ERROR", authzErr.Description)
	}
	return renderError(c, http.StatusInternalServerError, "ERROR", "internal server error")
}

func index() echo.HandlerFunc {
	tmpl := template.Must(template.ParseFS(templatesFS, "index.html"))

	return func(c echo.Context) error {
		buf := bytes.Buffer{}
		if err := tmpl.Execute(&buf, map[string]interface{}{
			"Title": "Welcome to COVID-19 REST Server",
		}); err != nil {
			return err
		}
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}

func top() echo.HandlerFunc {
	tmpl := template.Must(template.ParseFS(templatesFS, "top.html"))

	return func(c echo.Context) error {
		buf := bytes.Buffer{}
		if err := tmpl.Execute(&buf, map[string]interface{}{
			"Title": "COVID-19 REST Server",
		}); err != nil {
			return err
		}
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}

// authorize handles the external authorization request. All PKCE and state
// parameters pass through to the login form unchanged.
func authorize(as *authzserver.Server) echo.HandlerFunc {
	tmpl := template.Must(template.ParseFS(templatesFS, "login.html"))

	return func(c echo.Context) error {
		var req authzserver.AuthorizationRequest
		binderr := echo.FormFieldBinder(c).
			MustString("response_type", &req.ResponseType).
			MustString("client_id", &req.ClientID).
			MustString("redirect_uri", &req.RedirectURI).
			MustString("code_challenge", &req.CodeChallenge).
			MustString("code_challenge_method", &req.CodeChallengeMethod).
			String("state", &req.State).
			BindError()
		if binderr != nil {
			return renderError(c, http.StatusBadRequest, "ERROR", "invalid authorization request")
		}

		if err := as.CheckAuthorizationRequest(&req); err != nil {
			return renderAuthzError(c, err)
		}

		buf := bytes.Buffer{}
		if err := tmpl.Execute(&buf, map[string]interface{}{
			"Title":               "Login",
			"ClientID":            req.ClientID,
			"RedirectURI":         req.RedirectURI,
			"State":               req.State,
			"CodeChallenge":       req.CodeChallenge,
			"CodeChallengeMethod": req.CodeChallengeMethod,
			"CodeVerifier":        "",
		}); err != nil {
			return err
		}
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}

// authorizeLocal drives the flow without any caller input: state, verifier
// and challenge are generated here and echoed back through the form.
func authorizeLocal(as *authzserver.Server) echo.HandlerFunc {
	tmpl := template.Must(template.ParseFS(templatesFS, "login.html"))

	return func(c echo.Context) error {
		local, err := as.NewLocalAuthorization()
		if err != nil {
			return renderAuthzError(c, err)
		}

		buf := bytes.Buffer{}
		if err := tmpl.Execute(&buf, map[string]interface{}{
			"Title":               "Login",
			"ClientID":            local.Client.ClientID,
			"RedirectURI":         local.Client.RedirectURI,
			"State":               local.State,
			"CodeChallenge":       local.CodeChallenge,
			"CodeChallengeMethod": local.CodeChallengeMethod,
			"CodeVerifier":        local.CodeVerifier,
		}); err != nil {
			return err
		}
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}

func login(as *authzserver.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req authzserver.LoginRequest
		binderr := echo.FormFieldBinder(c).
			MustString("client_id", &req.ClientID).
			MustString("redirect_uri", &req.RedirectURI).
			MustString("code_challenge", &req.CodeChallenge).
			MustString("code_challenge_method", &req.CodeChallengeMethod).
			MustString("username", &req.Username).
			MustString("password", &req.Password).
			String("state", &req.State).
			String("code_verifier", &req.CodeVerifier).
			BindError()
		if binderr != nil {
			return renderError(c, http.StatusBadRequest, "ERROR", "invalid login request")
		}

		target, err := as.Login(&req)
		if err != nil {
			return renderAuthzError(c, err)
		}

		return c.Redirect(http.StatusFound, target)
	}
}

// callback exposes an issued code and its binding so the token exchange can
// be driven by hand against the token endpoint.
func callback(as *authzserver.Server) echo.HandlerFunc {
	tmpl := template.Must(template.ParseFS(templatesFS, "callback.html"))

	return func(c echo.Context) error {
		code := c.QueryParam("code")
		if code == "" {
			return renderError(c, http.StatusBadRequest, "ERROR", "code parameter is missing")
		}

		grant, err := as.LookupGrant(code)
		if err != nil {
			return renderError(c, http.StatusBadRequest, "ERROR", "unknown authorization code")
		}

		buf := bytes.Buffer{}
		if err := tmpl.Execute(&buf, map[string]interface{}{
			"Title":        "Authorization Code",
			"Code":         grant.Code,
			"ClientID":     grant.ClientID,
			"RedirectURI":  grant.RedirectURI,
			"CodeVerifier": grant.CodeVerifier,
			"State":        c.QueryParam("state"),
		}); err != nil {
			return err
		}
		return c.HTMLBlob(http.StatusOK, buf.Bytes())
	}
}
