package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrRejected maps the ledger's 422 response: a business rejection such as
	// insufficient funds. Never retried.
	ErrRejected = errors.New("ledger rejected transaction")
	// ErrUnavailable is returned once transient failures (5xx, 408, transport
	// errors) have used up all retry attempts.
	ErrUnavailable = errors.New("ledger unavailable")
)

const maxAttempts = 3

// Client books double-entry transactions against the ledger service over
// HTTP. The booking endpoint is idempotent on (txId, seq), so retrying the
// whole request on transient failures is safe.
type Client struct {
	baseURL string
	http    *http.Client
	backoff func(attempt int)
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		backoff: func(attempt int) {
			time.Sleep(time.Duration(attempt) * 200 * time.Millisecond)
		},
	}
}

type entry struct {
	AccountID   string `json:"accountId"`
	Currency    string `json:"currency"`
	AmountMinor int64  `json:"amountMinor"`
}

type bookRequest struct {
	TxID    string  `json:"txId"`
	Entries []entry `json:"entries"`
}

// AppendDoubleEntry posts the two offsetting legs for a transfer: -amount
// from the source account, +amount to the destination.
func (c *Client) AppendDoubleEntry(ctx context.Context, ledgerTxID, sourceAccountID, destAccountID, currency string, amountMinor int64) error {
	body, err := json.Marshal(bookRequest{
		TxID: ledgerTxID,
		Entries: []entry{
			{AccountID: sourceAccountID, Currency: currency, AmountMinor: -amountMinor},
			{AccountID: destAccountID, Currency: currency, AmountMinor: amountMinor},
		},
	})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, respBody, err := c.post(ctx, body)
		if err != nil {
			lastErr = err
		} else {
			switch {
			case status >= 200 && status < 300:
				return nil
			case status == http.StatusUnprocessableEntity:
				return fmt.Errorf("%w: %s", ErrRejected, string(respBody))
			case status >= 400 && status < 500 && status != http.StatusRequestTimeout:
				return fmt.Errorf("ledger returned %d: %s", status, string(respBody))
			default:
				lastErr = fmt.Errorf("ledger returned %d", status)
			}
		}
		if attempt < maxAttempts {
			c.backoff(attempt)
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, maxAttempts, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ledger/transactions", bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, respBody, nil
}
