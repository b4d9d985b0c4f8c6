package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gitlab.com/distributed_lab/logan/v3/errors"
)

// Explorer queries an insight-style block explorer REST API.
type Explorer struct {
	endpoint *url.URL
	client   *http.Client
}

func NewExplorer(endpoint *url.URL, requestTimeout time.Duration) *Explorer {
	return &Explorer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

type explorerTx struct {
	TxID          string `json:"txid"`
	Amount        int64  `json:"amount"`
	Confirmations int64  `json:"confirmations"`
	BlockHeight   int64  `json:"blockheight"`
}

func (e *Explorer) FetchTransactions(ctx context.Context, address string) ([]Transaction, error) {
	var raw []explorerTx
	err := e.get(ctx, "/api/addr/"+url.PathEscape(address)+"/txs", &raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch address transactions")
	}

	result := make([]Transaction, 0, len(raw))
	for _, tx := range raw {
		result = append(result, Transaction{
			TID:           tx.TxID,
			Amount:        tx.Amount,
			Confirmations: tx.Confirmations,
			BlockHeight:   tx.BlockHeight,
		})
	}
	return result, nil
}

func (e *Explorer) Height(ctx context.Context) (int64, error) {
	var raw struct {
		Height int64 `json:"height"`
	}
	if err := e.get(ctx, "/api/status", &raw); err != nil {
		return 0, errors.Wrap(err, "failed to fetch chain height")
	}
	return raw.Height, nil
}

func (e *Explorer) get(ctx context.Context, path string, dst interface{}) error {
	u := *e.endpoint
	u.Path += path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.From(errors.New("explorer responded with error"), map[string]interface{}{
			"status": fmt.Sprintf("%d", resp.StatusCode),
			"path":   path,
		})
	}

	err = json.NewDecoder(resp.Body).Decode(dst)
	return errors.Wrap(err, "failed to decode explorer response")
}

func decodeJSON(r io.Reader, dst interface{}) error {
	return json.NewDecoder(r).Decode(dst)
}
