package util

import (
	"crypto/rand"
	"math/big"
)

const randomLetters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GenerateRandomString returns a cryptographically random alphanumeric string
// of length n.
func GenerateRandomString(n int) string {
	ret := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(randomLetters))))
		if err != nil {
			panic("random number generation failed")
		}
		ret[i] = randomLetters[num.Int64()]
	}
	return string(ret)
}
