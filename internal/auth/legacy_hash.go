package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Werkzeug defaults for hashes that omit their parameters
const (
	defaultPBKDF2Iterations = 600000
	defaultScryptN          = 1 << 15
	defaultScryptR          = 8
	defaultScryptP          = 1
	scryptKeyLen            = 64
)

// IsLegacyHash reports whether hash is a werkzeug "method$salt$hex" hash
// written by the Flask deployment.
func IsLegacyHash(hash string) bool {
	parts := strings.SplitN(hash, "$", 3)
	if len(parts) != 3 {
		return false
	}
	return strings.HasPrefix(parts[0], "pbkdf2") || strings.HasPrefix(parts[0], "scrypt")
}

// checkLegacyHash verifies password against a werkzeug pbkdf2 or scrypt hash
func checkLegacyHash(encoded, password string) bool {
	parts := strings.SplitN(encoded, "$", 3)
	if len(parts) != 3 {
		return false
	}
	method, salt, want := parts[0], parts[1], parts[2]

	expected, err := hex.DecodeString(want)
	if err != nil || len(expected) == 0 {
		return false
	}

	params := strings.Split(method, ":")
	var derived []byte
	switch params[0] {
	case "pbkdf2":
		derived = derivePBKDF2(params[1:], password, salt)
	case "scrypt":
		derived = deriveScrypt(params[1:], password, salt)
	}
	if derived == nil {
		return false
	}
	return subtle.ConstantTimeCompare(derived, expected) == 1
}

// derivePBKDF2 handles "pbkdf2:<hash>[:<iterations>]"
func derivePBKDF2(params []string, password, salt string) []byte {
	hashName := "sha256"
	if len(params) > 0 && params[0] != "" {
		hashName = params[0]
	}
	iterations := defaultPBKDF2Iterations
	if len(params) > 1 {
		n, err := strconv.Atoi(params[1])
		if err != nil || n <= 0 {
			return nil
		}
		iterations = n
	}

	var newHash func() hash.Hash
	switch hashName {
	case "sha1":
		newHash = sha1.New
	case "sha256":
		newHash = sha256.New
	case "sha512":
		newHash = sha512.New
	default:
		return nil
	}
	return pbkdf2.Key([]byte(password), []byte(salt), iterations, newHash().Size(), newHash)
}

// deriveScrypt handles "scrypt[:<n>:<r>:<p>]"
func deriveScrypt(params []string, password, salt string) []byte {
	n, r, p := defaultScryptN, defaultScryptR, defaultScryptP
	if len(params) > 0 {
		if len(params) != 3 {
			return nil
		}
		values := make([]int, 3)
		for i, param := range params {
			v, err := strconv.Atoi(param)
			if err != nil || v <= 0 {
				return nil
			}
			values[i] = v
		}
		n, r, p = values[0], values[1], values[2]
	}

	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, scryptKeyLen)
	if err != nil {
		return nil
	}
	return key
}
