package ledger

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gitlab.com/distributed_lab/logan/v3/errors"
)

// AddressService is an HTTP client for the external address-provider
// collaborator: key derivation never happens inside this service.
type AddressService struct {
	endpoint *url.URL
	client   *http.Client
}

func NewAddressService(endpoint *url.URL, requestTimeout time.Duration) *AddressService {
	return &AddressService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: requestTimeout},
	}
}

func (s *AddressService) NewAddress(keychainID int64) (string, error) {
	u := *s.endpoint
	u.Path += "/addresses/" + strconv.FormatInt(keychainID, 10)

	ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to request address")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("address provider responded with error")
	}

	var raw struct {
		Address string `json:"address"`
	}
	if err = decodeJSON(resp.Body, &raw); err != nil {
		return "", errors.Wrap(err, "failed to decode address response")
	}
	if raw.Address == "" {
		return "", errors.New("address provider returned an empty address")
	}
	return raw.Address, nil
}
