package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"
)

// Client talks to the Qdrant REST API. The posts collection holds one
// point per post: a 384-dim embedding plus a payload carrying user_id
// so discovery can exclude the viewer's own posts.
type Client struct {
	baseURL    string
	collection string
	dimension  int
	http       *http.Client
}

// NewClient builds the shared Qdrant client with the default per-call timeout.
func NewClient(baseURL, collection string, dimension int, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		collection: collection,
		dimension:  dimension,
		http:       &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	Filter      *filter   `json:"filter,omitempty"`
	WithPayload bool      `json:"with_payload"`
}

type filter struct {
	MustNot []fieldCondition `json:"must_not,omitempty"`
}

type fieldCondition struct {
	Key   string     `json:"key"`
	Match matchValue `json:"match"`
}

type matchValue struct {
	Value string `json:"value"`
}

type searchResponse struct {
	Result []struct {
		// Point IDs are UUID strings here, but Qdrant also allows
		// numeric IDs, so decode loosely.
		ID any `json:"id"`
	} `json:"result"`
}

// Search runs an ANN query over post embeddings and returns post IDs
// ordered by cosine similarity. excludeUserID filters out the viewer's
// own posts; pass "" to skip the filter.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, excludeUserID string) ([]string, error) {
	req := searchRequest{Vector: vector, Limit: limit}
	if excludeUserID != "" {
		req.Filter = &filter{
			MustNot: []fieldCondition{{
				Key:   "user_id",
				Match: matchValue{Value: excludeUserID},
			}},
		}
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	var resp searchResponse
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	ids := make([]string, 0, len(resp.Result))
	for _, r := range resp.Result {
		switch id := r.ID.(type) {
		case string:
			ids = append(ids, id)
		case float64:
			ids = append(ids, strconv.FormatInt(int64(id), 10))
		}
	}
	return ids, nil
}

// UpsertPost stores or replaces a post's embedding.
func (c *Client) UpsertPost(ctx context.Context, postID string, vector []float32, payload map[string]any) error {
	body := map[string]any{
		"points": []map[string]any{{
			"id":      postID,
			"vector":  vector,
			"payload": payload,
		}},
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	if err := c.do(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("upsert post vector: %w", err)
	}
	return nil
}

// EnsureCollection creates the posts collection if it doesn't exist.
func (c *Client) EnsureCollection(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     c.dimension,
			"distance": "Cosine",
		},
	}
	if err := c.do(ctx, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	log.Printf("[VectorIndex] created collection %q (dim=%d)", c.collection, c.dimension)
	return nil
}

func (c *Client) postJSON(ctx context.Context, url string, in, out any) error {
	return c.do(ctx, http.MethodPost, url, in, out)
}

func (c *Client) do(ctx context.Context, method, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("qdrant returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
