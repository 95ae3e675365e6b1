package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"roaming-recon/internal/deal"
)

// ErrNoContract is returned when the contracts service knows no agreement
// covering the operator pair on the query date. Callers skip the pair; it is
// not a failure of the batch.
var ErrNoContract = errors.New("no contract covers the operator pair")

// Result is one contract returned by the contracts service: the stored
// contract's identity and its decoded, validated deal document.
type Result struct {
	ContractUUID uuid.UUID
	Deal         *deal.Deal
}

// Client queries the contracts service for the deal in force between two
// operators on a given date.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client for the contracts service at baseURL. A nil
// httpClient gets a 30 second timeout; a nil logger is silenced.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, http: httpClient, logger: logger}
}

// Query asks for the contract between hpmn and vpmn in force on queryDate.
// The service answers with an array of [uuid, deal document] pairs; the first
// pair wins. An empty answer is ErrNoContract.
func (c *Client) Query(ctx context.Context, hpmn, vpmn string, queryDate time.Time) (*Result, error) {
	params := url.Values{}
	params.Set("hpmn", hpmn)
	params.Set("vpmn", vpmn)
	params.Set("query_date", queryDate.Format("2006-01-02"))

	endpoint := c.baseURL + "/internal/contracts/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build contracts query: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contracts query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contracts service returned status %d", resp.StatusCode)
	}

	var rows [][]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode contracts response: %w", err)
	}
	if len(rows) == 0 {
		c.logger.Info("no contract found",
			zap.String("hpmn", hpmn),
			zap.String("vpmn", vpmn),
			zap.Time("query_date", queryDate))
		return nil, ErrNoContract
	}
	if len(rows[0]) != 2 {
		return nil, fmt.Errorf("contracts response row has %d elements, want 2", len(rows[0]))
	}

	var rawUUID string
	if err := json.Unmarshal(rows[0][0], &rawUUID); err != nil {
		return nil, fmt.Errorf("failed to decode contract uuid: %w", err)
	}
	contractUUID, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("contracts service returned a malformed uuid %q: %w", rawUUID, err)
	}

	d, err := deal.DecodeBytes(rows[0][1])
	if err != nil {
		return nil, fmt.Errorf("contract %s carries an unusable deal document: %w", contractUUID, err)
	}

	c.logger.Debug("contract found",
		zap.String("hpmn", hpmn),
		zap.String("vpmn", vpmn),
		zap.Stringer("contract_uuid", contractUUID))
	return &Result{ContractUUID: contractUUID, Deal: d}, nil
}
