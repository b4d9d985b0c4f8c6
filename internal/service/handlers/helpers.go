package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/service/auth"
	"github.com/straight-pay/gateway-svc/internal/service/gateways"
)

// requestGateway resolves the {gateway} path segment, which is either a
// numeric id or an external-facing hashed id. nil means not found.
func requestGateway(r *http.Request) (*gateways.Gateway, error) {
	param := chi.URLParam(r, "gateway")
	if id, err := strconv.ParseInt(param, 10, 64); err == nil {
		return Gateways(r).Get(id)
	}
	return Gateways(r).ByHashedID(param)
}

// requestOrder resolves the {order} path segment: a numeric id or a
// payment id. nil means not found.
func requestOrder(r *http.Request, gw *gateways.Gateway) (*data.Order, error) {
	param := chi.URLParam(r, "order")

	var order *data.Order
	var err error
	if id, parseErr := strconv.ParseInt(param, 10, 64); parseErr == nil {
		order, err = Orders(r).Get(id)
	} else {
		order, err = Orders(r).GetByPaymentID(param)
	}
	if err != nil || order == nil {
		return nil, err
	}
	if order.GatewayID != gw.Record().ID {
		return nil, nil
	}
	return order, nil
}

// authenticate validates the request signature against the gateway
// secret. The body is restored so handlers can still parse it.
func authenticate(r *http.Request, gw *gateways.Gateway) error {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	return Validator(r).Validate(auth.Request{
		Method:     r.Method,
		RequestURI: r.RequestURI,
		Nonce:      r.Header.Get("X-Nonce"),
		Body:       string(body),
		Signature:  r.Header.Get("X-Signature"),
	}, strconv.FormatInt(gw.Record().ID, 10), gw.Secret(), true)
}

// requestIP prefers the forwarding header since the server is expected
// to sit behind a reverse proxy.
func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
