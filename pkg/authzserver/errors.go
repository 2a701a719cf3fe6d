package authzserver

import "fmt"

// Error is a terminal, caller-facing failure of an authorization operation.
// The description is generic on purpose; internal causes are only logged.
type Error struct {
	HTTPStatus  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (status=%d)", e.Code, e.HTTPStatus)
}

var ErrInvalidClient = &Error{
	HTTPStatus:  400,
	Code:        "invalid_client",
	Description: "unknown client_id or redirect_uri not registered for client",
}

var ErrInvalidCredentials = &Error{
	HTTPStatus:  401,
	Code:        "invalid_credentials",
	Description: "username or password incorrect",
}

var ErrUnsupportedGrantType = &Error{
	HTTPStatus:  400,
	Code:        "unsupported_grant_type",
	Description: "only authorization_code is supported",
}

var ErrInvalidCode = &Error{
	HTTPStatus:  400,
	Code:        "invalid_code",
	Description: "authorization code unknown or not issued for this client",
}

var ErrInvalidCodeVerifier = &Error{
	HTTPStatus:  400,
	Code:        "invalid_code_verifier",
	Description: "code verifier does not match the code challenge",
}

var ErrTokenIssuanceFailure = &Error{
	HTTPStatus:  403,
	Code:        "token_issuance_failure",
	Description: "unable to issue access token",
}
