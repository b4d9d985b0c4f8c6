package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignature(t *testing.T) {
	cases := []struct {
		name     string
		nonce    string
		body     string
		method   string
		uri      string
		secret   string
		expected string
	}{
		{
			name:     "empty body",
			nonce:    "123",
			body:     "",
			method:   "GET",
			uri:      "/somewhere",
			secret:   "gateway_secret",
			expected: "ZSWEKzuWy6QWCc05I+t4QYQhUtkeogkW7rCwieQvy/56Y+bVwxGGKB3yNQg1XL2LmtuNNwv2SXUxjlFEP7+0+A==",
		},
		{
			name:     "secret changes signature",
			nonce:    "123",
			body:     "",
			method:   "GET",
			uri:      "/somewhere",
			secret:   "gateway-secret",
			expected: "nYLq7IXlgw5FAsXGc0+JoXmfHBEwl7zwVQhsix+FraIIFsPeGYnQ/22wkjPAwwyu0GoYEbM6gmN+sxEzciNkFg==",
		},
		{
			name:     "large body",
			nonce:    "12345",
			body:     strings.Repeat("text", 10000),
			method:   "POST",
			uri:      "/somewhere",
			secret:   "gateway_secret",
			expected: "F0GsyqPkxDgmqdTomIGVIRQ/ik2GiZtXy1GVNx0j+UDUL8VS496HsbcOlyUocKUM0fU96KkjhrpUh0LC29AXyQ==",
		},
		{
			name:     "order creation request",
			nonce:    "1",
			body:     "request body",
			method:   "POST",
			uri:      "/gateway/123/orders",
			secret:   "abc",
			expected: "1EtQNASecMF85tyag+pSSdF2yxLfy3xCddM2ZGA86M8OTxleEixBnbOeMEBp37Ke5+7jWQm+Gpx95y6MZiW6wQ==",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Signature(tc.nonce, tc.body, tc.method, tc.uri, tc.secret))
		})
	}
}

func TestSignatureLowercaseMethod(t *testing.T) {
	assert.Equal(t,
		Signature("123", "", "GET", "/somewhere", "gateway_secret"),
		Signature("123", "", "get", "/somewhere", "gateway_secret"),
	)
}

func TestSignatureHex(t *testing.T) {
	assert.Equal(t,
		"c7d0f11725bdb7d7183ab117317684fcf76b7d8365fa9971f5679d6c5412f518d1b891a7a22339eeafde1a8f28a28a3f08a701a9787ec505f4a143dd02ae3232",
		SignatureHex("123", "", "GET", "/somewhere", "gateway_secret"),
	)
	assert.Equal(t,
		"1d1349701164eb32224d15967649a2e943c0bfa0e7417c99cc387ca9b234d9f4c39f70185a4ac581e70dd03dc9ac23eb5a47de0ff341c169f0e7a4d6a2b8931b",
		SignatureHex("1", "request body", "POST", "/gateway/123/orders", "abc"),
	)
}

func TestValidate(t *testing.T) {
	v := NewValidator("")

	req := Request{
		Method:     "POST",
		RequestURI: "/gateway/123/orders",
		Nonce:      "1",
		Body:       "request body",
	}

	t.Run("empty signature rejected", func(t *testing.T) {
		assert.Equal(t, ErrInvalidSignature, v.Validate(req, "123", "abc", false))
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		r := req
		r.Signature = Signature(r.Nonce, r.Body, r.Method, r.RequestURI, "wrong")
		assert.Equal(t, ErrInvalidSignature, v.Validate(r, "123", "abc", false))
	})

	t.Run("canonical encoding accepted", func(t *testing.T) {
		r := req
		r.Signature = Signature(r.Nonce, r.Body, r.Method, r.RequestURI, "abc")
		assert.NoError(t, v.Validate(r, "123", "abc", false))
	})

	t.Run("hex encoding accepted", func(t *testing.T) {
		r := req
		r.Signature = SignatureHex(r.Nonce, r.Body, r.Method, r.RequestURI, "abc")
		assert.NoError(t, v.Validate(r, "123", "abc", false))
	})

	t.Run("tampered body rejected", func(t *testing.T) {
		r := req
		r.Signature = Signature(r.Nonce, r.Body, r.Method, r.RequestURI, "abc")
		r.Body = "tampered body"
		assert.Equal(t, ErrInvalidSignature, v.Validate(r, "123", "abc", false))
	})
}

func TestValidateNonce(t *testing.T) {
	v := NewValidator("")

	sign := func(nonce string) Request {
		r := Request{
			Method:     "POST",
			RequestURI: "/gateway/1/orders/1/cancel",
			Nonce:      nonce,
			Body:       "",
		}
		r.Signature = Signature(r.Nonce, r.Body, r.Method, r.RequestURI, "secret")
		return r
	}

	require.NoError(t, v.Validate(sign("5"), "1", "secret", true))

	t.Run("replay rejected", func(t *testing.T) {
		assert.Equal(t, ErrInvalidNonce, v.Validate(sign("5"), "1", "secret", true))
	})

	t.Run("lower nonce rejected", func(t *testing.T) {
		assert.Equal(t, ErrInvalidNonce, v.Validate(sign("4"), "1", "secret", true))
	})

	t.Run("higher nonce accepted", func(t *testing.T) {
		assert.NoError(t, v.Validate(sign("6"), "1", "secret", true))
	})

	t.Run("nonces are per identity", func(t *testing.T) {
		assert.NoError(t, v.Validate(sign("5"), "2", "secret", true))
	})

	t.Run("counter starting at zero accepted", func(t *testing.T) {
		require.NoError(t, v.Validate(sign("0"), "zero", "secret", true))
		assert.Equal(t, ErrInvalidNonce, v.Validate(sign("0"), "zero", "secret", true))
		assert.NoError(t, v.Validate(sign("1"), "zero", "secret", true))
	})

	t.Run("non-numeric nonce rejected", func(t *testing.T) {
		assert.Equal(t, ErrInvalidNonce, v.Validate(sign("not-a-number"), "3", "secret", true))
	})

	t.Run("nonce not consumed on bad signature", func(t *testing.T) {
		r := sign("100")
		r.Signature = "bogus"
		require.Equal(t, ErrInvalidSignature, v.Validate(r, "4", "secret", true))
		assert.NoError(t, v.Validate(sign("100"), "4", "secret", true))
	})
}

func TestNonceStoreConcurrent(t *testing.T) {
	store := NewNonceStore()

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- store.Advance("gw", "42")
		}()
	}
	wg.Wait()
	close(wins)

	accepted := 0
	for ok := range wins {
		if ok {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestSuperuserSignature(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	superuserSign := func(r Request) string {
		inner := sha512.Sum512([]byte(r.Nonce + r.Body))
		signed := sha512.Sum512(append([]byte(strings.ToUpper(r.Method)+r.RequestURI), inner[:]...))
		sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA512, signed[:])
		require.NoError(t, err)
		return base64.StdEncoding.EncodeToString(sig)
	}

	req := Request{
		Method:     "POST",
		RequestURI: "/gateway/1/orders/7/reprocess",
		Nonce:      "1",
		Body:       "",
	}

	t.Run("valid superuser signature accepted", func(t *testing.T) {
		v := NewValidator(pubPEM)
		r := req
		r.Signature = superuserSign(r)
		assert.NoError(t, v.Validate(r, "1", "unknown-to-superuser", false))
	})

	t.Run("hmac still accepted alongside superuser key", func(t *testing.T) {
		v := NewValidator(pubPEM)
		r := req
		r.Signature = Signature(r.Nonce, r.Body, r.Method, r.RequestURI, "secret")
		assert.NoError(t, v.Validate(r, "1", "secret", false))
	})

	t.Run("no key configured", func(t *testing.T) {
		v := NewValidator("")
		r := req
		r.Signature = superuserSign(r)
		assert.Equal(t, ErrInvalidSignature, v.Validate(r, "1", "secret", false))
	})

	t.Run("malformed key falls through to rejection", func(t *testing.T) {
		v := NewValidator("not a pem block")
		r := req
		r.Signature = superuserSign(r)
		assert.Equal(t, ErrInvalidSignature, v.Validate(r, "1", "secret", false))
	})

	t.Run("malformed base64 falls through to rejection", func(t *testing.T) {
		v := NewValidator(pubPEM)
		r := req
		r.Signature = "%%% not base64 %%%"
		assert.Equal(t, ErrInvalidSignature, v.Validate(r, "1", "secret", false))
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		otherDER, err := x509.MarshalPKIXPublicKey(&other.PublicKey)
		require.NoError(t, err)
		otherPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: otherDER}))

		v := NewValidator(otherPEM)
		r := req
		r.Signature = superuserSign(r)
		assert.Equal(t, ErrInvalidSignature, v.Validate(r, "1", "secret", false))
	})
}

func BenchmarkSignature(b *testing.B) {
	body := strings.Repeat("text", 10000)
	for i := 0; i < b.N; i++ {
		Signature(strconv.Itoa(i), body, "POST", "/somewhere", "gateway_secret")
	}
}
