package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/auction_layer/pkg/logger"
)

// HTTPTransferrer disburses withdrawals through an external payout endpoint.
// The endpoint receives {"recipient": ..., "amount": ...} and must answer
// with a JSON body whose "status" field is "completed"; anything else is a
// failed transfer.
type HTTPTransferrer struct {
	client   *http.Client
	endpoint string
	apiKey   string
	log      *logger.Logger
}

// NewHTTPTransferrer validates the endpoint and builds the adapter.
func NewHTTPTransferrer(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*HTTPTransferrer, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("payout endpoint is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logger.NewDefault("settlement-payout")
	}
	return &HTTPTransferrer{client: client, endpoint: endpoint, apiKey: apiKey, log: log}, nil
}

// TransferValue implements ValueTransferrer.
func (t *HTTPTransferrer) TransferValue(ctx context.Context, to string, amount int64) error {
	payload, err := json.Marshal(map[string]interface{}{
		"recipient": to,
		"amount":    amount,
	})
	if err != nil {
		return fmt.Errorf("marshal payout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute payout request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read payout response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("payout endpoint returned %d", resp.StatusCode)
	}

	status := gjson.GetBytes(body, "status").String()
	if status != "completed" {
		message := gjson.GetBytes(body, "message").String()
		if message == "" {
			message = "payout not completed"
		}
		return fmt.Errorf("payout rejected: %s (status=%s)", message, status)
	}

	t.log.WithField("recipient", to).Debugf("payout of %d confirmed", amount)
	return nil
}

// LoggingTransferrer records payouts in the log and reports success. It is
// the development default when no payout endpoint is configured.
type LoggingTransferrer struct {
	log *logger.Logger
}

// NewLoggingTransferrer builds the development transferrer.
func NewLoggingTransferrer(log *logger.Logger) *LoggingTransferrer {
	if log == nil {
		log = logger.NewDefault("settlement-payout")
	}
	return &LoggingTransferrer{log: log}
}

// TransferValue implements ValueTransferrer.
func (t *LoggingTransferrer) TransferValue(_ context.Context, to string, amount int64) error {
	t.log.WithField("recipient", to).Infof("simulated payout of %d", amount)
	return nil
}
