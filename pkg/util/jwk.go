package util

import (
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

// LoadJwkFromPem reads a PEM encoded key (PKCS8 private or SPKI public) and
// parses it into a jwk.Key.
func LoadJwkFromPem(path string) (jwk.Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file '%s': %w", path, err)
	}
	key, err := jwk.ParseKey(data, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse key file '%s': %w", path, err)
	}
	return key, nil
}
