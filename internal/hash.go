package internal

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// HashToken returns the SHA-256 digest of a bearer token string. The raw
// token is never persisted; every store (session, revocation) is keyed by
// this digest.
func HashToken(token string) [32]byte {
	return sha256.Sum256([]byte(token))
}

// HashTokenHex returns the lowercase hex form of HashToken, used as a
// Redis key component.
func HashTokenHex(token string) string {
	sum := HashToken(token)
	return hex.EncodeToString(sum[:])
}

// Fingerprint derives the device fingerprint claim from request context.
// It is a keyed one-way hash so a token replayed from a different device
// or network fails verification even when its signature is valid.
func Fingerprint(userAgent, ip string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(userAgent))
	mac.Write([]byte{0})
	mac.Write([]byte(ip))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// FingerprintEqual compares two fingerprint claims in constant time.
func FingerprintEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
