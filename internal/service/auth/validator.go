// Package auth implements request signature validation for
// state-mutating gateway API calls: an HMAC-SHA512 signature over the
// request, a strictly increasing per-gateway nonce, and an optional RSA
// superuser override.
package auth

import (
	"crypto"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"strings"

	"gitlab.com/distributed_lab/logan/v3/errors"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidNonce     = errors.New("invalid nonce")
)

// Request carries the parts of an HTTP request the signature covers.
// RequestURI must be the raw request URI including the query string.
type Request struct {
	Method     string
	RequestURI string
	Nonce      string
	Body       string
	Signature  string
}

// Signature is the canonical form:
//
//	HMAC-SHA512(secret, UPPER(method) || requestURI || SHA512(nonce || body))
//
// base64-encoded. Changing the layout breaks interoperability with
// every client kit, so it is pinned by golden-value tests.
func Signature(nonce, body, method, requestURI, secret string) string {
	inner := sha512.Sum512([]byte(nonce + body))
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(strings.ToUpper(method) + requestURI))
	mac.Write(inner[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignatureHex is the alternative encoding kept for clients that cannot
// produce binary strings: the inner digest is hex-encoded before
// signing and the result is lowercase hex.
func SignatureHex(nonce, body, method, requestURI, secret string) string {
	inner := sha512.Sum512([]byte(nonce + body))
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(strings.ToUpper(method) + requestURI + hex.EncodeToString(inner[:])))
	return hex.EncodeToString(mac.Sum(nil))
}

type Validator struct {
	superuserKeyPEM string
	nonces          *NonceStore
}

// NewValidator creates a validator. superuserKeyPEM may be empty, in
// which case no superuser override is possible.
func NewValidator(superuserKeyPEM string) *Validator {
	return &Validator{
		superuserKeyPEM: superuserKeyPEM,
		nonces:          NewNonceStore(),
	}
}

// Validate checks the request signature against the secret and, when
// checkNonce is set, enforces a strictly increasing nonce for the
// identity. Signature failures and nonce failures are distinct errors.
func (v *Validator) Validate(req Request, identity, secret string, checkNonce bool) error {
	if req.Signature == "" {
		return ErrInvalidSignature
	}

	valid := req.Signature == Signature(req.Nonce, req.Body, req.Method, req.RequestURI, secret) ||
		req.Signature == SignatureHex(req.Nonce, req.Body, req.Method, req.RequestURI, secret)
	if !valid {
		valid = v.superuserSignature(req)
	}
	if !valid {
		return ErrInvalidSignature
	}

	if checkNonce && !v.nonces.Advance(identity, req.Nonce) {
		return ErrInvalidNonce
	}
	return nil
}

// superuserSignature reports whether the signature verifies against the
// configured RSA public key. Malformed base64, a malformed key, or any
// verification error means "not a superuser signature", never a crash.
func (v *Validator) superuserSignature(req Request) bool {
	if v.superuserKeyPEM == "" {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return false
	}

	block, _ := pem.Decode([]byte(v.superuserKeyPEM))
	if block == nil {
		return false
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return false
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return false
	}

	inner := sha512.Sum512([]byte(req.Nonce + req.Body))
	signed := sha512.Sum512(append([]byte(strings.ToUpper(req.Method)+req.RequestURI), inner[:]...))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA512, signed[:], sig) == nil
}
