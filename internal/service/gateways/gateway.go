// Package gateways wraps persisted gateway records with their runtime
// behavior: order creation, payment-id signing, ledger access, and
// status-change fan-out (merchant callback, websockets, counters).
package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gitlab.com/distributed_lab/logan/v3"
	"gitlab.com/distributed_lab/logan/v3/errors"

	"github.com/straight-pay/gateway-svc/internal/data"
	"github.com/straight-pay/gateway-svc/internal/ledger"
	"github.com/straight-pay/gateway-svc/internal/service/counters"
)

var ErrGatewayInactive = errors.New("gateway is inactive")

const callbackTimeout = 15 * time.Second

// Gateway is the runtime wrapper around one gateway record. The record
// is refreshed from storage on every registry lookup while trackers and
// feed callbacks keep reading it, so all access goes through the lock.
type Gateway struct {
	mu        sync.RWMutex
	rec       data.Gateway
	log       *logan.Entry
	orders    data.Orders
	gateways  data.Gateways
	ledger    ledger.Adapter
	addresses ledger.AddressProvider
	counters  *counters.Counters
	sockets   *socketHub
	client    *http.Client

	defaultExpiration time.Duration
}

func (g *Gateway) Record() data.Gateway {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rec
}

func (g *Gateway) setRecord(rec data.Gateway) {
	g.mu.Lock()
	g.rec = rec
	g.mu.Unlock()
}

func (g *Gateway) ConfirmationsRequired() int64 { return g.Record().ConfirmationsRequired }

func (g *Gateway) Secret() string { return g.Record().Secret }

func (g *Gateway) CheckSignature() bool { return g.Record().CheckSignature }

// ExpirationPeriod is how long a fresh order accepts payments.
func (g *Gateway) ExpirationPeriod() time.Duration {
	rec := g.Record()
	if rec.ExpirationPeriod.Valid && rec.ExpirationPeriod.Int64 > 0 {
		return time.Duration(rec.ExpirationPeriod.Int64) * time.Second
	}
	return g.defaultExpiration
}

func (g *Gateway) FetchTransactionsFor(ctx context.Context, address string) ([]ledger.Transaction, error) {
	return g.ledger.FetchTransactions(ctx, address)
}

// SignWithSecret authenticates a payload with the gateway secret; used
// to derive payment ids that cannot be forged.
func (g *Gateway) SignWithSecret(payload string) string {
	mac := hmac.New(sha256.New, []byte(g.Secret()))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

type CreateOrderParams struct {
	Amount       int64
	KeychainID   int64 // reuse an existing derivation slot when > 0
	Description  string
	Data         string
	CallbackData string
	RedirectTo   string
}

// CreateOrder validates the params, derives the receiving address, and
// persists a new order bound to the current ledger height. Validation
// failures come back as validation.Errors with per-field reasons.
func (g *Gateway) CreateOrder(ctx context.Context, params CreateOrderParams) (*data.Order, error) {
	rec := g.Record()
	if !rec.Active {
		return nil, ErrGatewayInactive
	}

	errs := validation.Errors{}
	if params.Amount < 0 {
		errs["amount"] = errors.New("is less than 0")
	}
	if len(params.Description) > 255 {
		errs["description"] = errors.New("should be shorter than 256 characters")
	}
	if err := errs.Filter(); err != nil {
		return nil, err
	}

	keychainID := params.KeychainID
	if keychainID <= 0 {
		var err error
		keychainID, err = g.gateways.BumpKeychainID(rec.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to bump keychain id")
		}
		g.mu.Lock()
		g.rec.LastKeychainID = keychainID
		g.mu.Unlock()
	}

	address, err := g.addresses.NewAddress(keychainID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive address")
	}

	active, err := g.orders.CountActive(rec.ID, address)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check address usage")
	}
	if active > 0 {
		return nil, validation.Errors{"address": errors.New("already in use")}
	}

	height, err := g.ledger.Height(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current ledger height")
	}

	nextID, err := g.orders.NextID()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get next order id")
	}

	createdAt := time.Now().UTC()
	order := data.Order{
		GatewayID:            rec.ID,
		Address:              address,
		KeychainID:           keychainID,
		Amount:               params.Amount,
		Status:               data.StatusNew,
		BlockHeightCreatedAt: sql.NullInt64{Int64: height, Valid: height > 0},
		Description:          nullString(params.Description),
		Data:                 nullString(params.Data),
		CallbackData:         nullString(params.CallbackData),
		RedirectTo:           nullString(params.RedirectTo),
		CreatedAt:            createdAt,
		PaymentID: g.SignWithSecret(fmt.Sprintf("%d%d%s%d",
			keychainID, params.Amount, createdAt.Format(time.RFC3339), nextID)),
	}

	saved, err := g.orders.Insert(order)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert order")
	}

	g.counters.Increment(ctx, rec.ID, data.StatusNew)
	return saved, nil
}

// OrderStatusChanged fans a settled status change out to the order
// counters, the order's live websocket, and the merchant callback URL.
// Fired exactly once per reconciled change.
func (g *Gateway) OrderStatusChanged(order data.Order, oldStatus int32) {
	g.log.WithFields(logan.F{
		"order":  order.ID,
		"status": data.StatusName(order.Status),
	}).Info("order status changed")

	g.counters.OrderTransitioned(context.Background(), g.Record().ID, oldStatus, order.Status)
	g.sockets.notify(order)
	go g.sendCallback(order)
}

// sendCallback POSTs the status change to the merchant; a no-op when no
// callback URL is configured. The response body is stored with the
// order for audit.
func (g *Gateway) sendCallback(order data.Order) {
	callbackURL := g.Record().CallbackURL
	if !callbackURL.Valid || callbackURL.String == "" {
		return
	}
	log := g.log.WithField("order", order.ID)

	params := url.Values{}
	params.Set("order_id", strconv.FormatInt(order.ID, 10))
	params.Set("payment_id", order.PaymentID)
	params.Set("amount", strconv.FormatInt(order.Amount, 10))
	params.Set("amount_paid", strconv.FormatInt(order.AmountPaid, 10))
	params.Set("status", strconv.FormatInt(int64(order.Status), 10))
	params.Set("address", order.Address)
	params.Set("keychain_id", strconv.FormatInt(order.KeychainID, 10))
	if order.CallbackData.Valid {
		params.Set("callback_data", order.CallbackData.String)
	}
	encoded := params.Encode()

	req, err := http.NewRequest(http.MethodPost, callbackURL.String+"?"+encoded, nil)
	if err != nil {
		log.WithError(err).Error("failed to build callback request")
		return
	}
	req.Header.Set("X-Signature", g.SignWithSecret(encoded))

	resp, err := g.client.Do(req)
	if err != nil {
		log.WithError(err).Error("failed to send order callback")
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	order.CallbackResponse = sql.NullString{String: strconv.Itoa(resp.StatusCode) + "|" + string(body), Valid: true}
	if err = g.orders.Update(&order); err != nil {
		log.WithError(err).Error("failed to store callback response")
	}
	log.WithField("code", resp.StatusCode).Info("order callback delivered")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
