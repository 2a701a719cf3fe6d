// Package oauth2 holds the OAuth2 wire types and the PKCE codec shared by
// the authorization server and its clients.
package oauth2

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

type CodeChallengeMethod string

const (
	CodeChallengeMethodS256 CodeChallengeMethod = "S256"
)

const GrantTypeAuthorizationCode = "authorization_code"

type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

const verifierLetters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const verifierLength = 128

// GenerateCodeVerifier returns a new high-entropy PKCE code verifier of 128
// alphanumeric characters.
func GenerateCodeVerifier() string {
	ret := make([]byte, verifierLength)
	for i := 0; i < verifierLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(verifierLetters))))
		if err != nil {
			panic("random number generation failed")
		}
		ret[i] = verifierLetters[num.Int64()]
	}

	return string(ret)
}

// S256ChallengeFromVerifier derives the code challenge as
// base64url(SHA-256(verifier)) without padding.
func S256ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
