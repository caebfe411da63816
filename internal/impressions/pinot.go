package impressions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"socialfeed/internal/metrics"
)

// seenLimit bounds the impression lookup; beyond this a viewer's recent
// history stops being useful for deduplication anyway.
const seenLimit = 10000

// Client queries the Pinot broker for posts a viewer has already seen.
// Pinot is ingestion-fed from the impressions stream; this is the read
// side used by stage 2 of the pipeline.
type Client struct {
	baseURL       string
	table         string
	lookbackHours int
	http          *http.Client
}

// NewClient builds the shared Pinot broker client.
func NewClient(baseURL, table string, lookbackHours int, timeout time.Duration) *Client {
	return &Client{
		baseURL:       baseURL,
		table:         table,
		lookbackHours: lookbackHours,
		http:          &http.Client{Timeout: timeout},
	}
}

type queryResponse struct {
	ResultTable struct {
		Rows [][]any `json:"rows"`
	} `json:"resultTable"`
}

// SeenPostIDs returns the set of post IDs this user saw inside the
// lookback window. Any failure degrades to an empty set; better to
// show a seen post than to serve nothing.
func (c *Client) SeenPostIDs(ctx context.Context, userID string) map[string]struct{} {
	seen := make(map[string]struct{})

	// The broker's /query/sql endpoint takes a raw SQL string with no
	// bind parameters, so the identifier is validated before it is
	// interpolated. Anything outside the ID alphabet is rejected.
	if !validIdentifier(userID) {
		log.Printf("[Impressions] rejected user id %q for seen-set query", userID)
		return seen
	}

	cutoffMS := time.Now().Add(-time.Duration(c.lookbackHours)*time.Hour).UnixMilli()
	sql := fmt.Sprintf(
		"SELECT post_id FROM %s WHERE user_id = '%s' AND timestamp >= %d LIMIT %d",
		c.table, userID, cutoffMS, seenLimit,
	)

	payload, _ := json.Marshal(map[string]string{"sql": sql})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query/sql", bytes.NewReader(payload))
	if err != nil {
		return seen
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.degrade(userID, err)
		return seen
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.degrade(userID, fmt.Errorf("broker returned %d", resp.StatusCode))
		return seen
	}

	var data queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		c.degrade(userID, err)
		return seen
	}

	for _, row := range data.ResultTable.Rows {
		if len(row) == 0 {
			continue
		}
		if pid, ok := row[0].(string); ok {
			seen[pid] = struct{}{}
		}
	}
	return seen
}

func (c *Client) degrade(userID string, err error) {
	log.Printf("[Impressions] query failed (user=%s): %v, returning empty seen-set", userID, err)
	metrics.ImpressionFallbackTotal.Inc()
}

// validIdentifier accepts the UUID/opaque-ID alphabet only.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
