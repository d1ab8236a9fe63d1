package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skillproof/proctor-backend/internal/config"
	"github.com/skillproof/proctor-backend/internal/model"
)

// definitionTTL bounds how long a cached definition is served before the
// catalog service is consulted again. Definitions are immutable, so the
// TTL only limits cache growth.
const definitionTTL = 6 * time.Hour

// ErrTestNotFound is returned when the catalog has no such test.
var ErrTestNotFound = errors.New("test not found")

// Client fetches immutable test definitions from the catalog service,
// with a Redis read-through cache.
type Client struct {
	baseURL string
	http    *http.Client
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewClient creates a catalog client.
func NewClient(baseURL string, rdb *redis.Client, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: config.HTTPClientTimeout},
		rdb:     rdb,
		log:     log.With().Str("component", "catalog_client").Logger(),
	}
}

// GetTest returns the definition for testID, from cache when possible.
func (c *Client) GetTest(ctx context.Context, testID string) (*model.TestDefinition, error) {
	key := config.CacheKey.TestDefinitionKey(testID)

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var def model.TestDefinition
		if jsonErr := json.Unmarshal([]byte(raw), &def); jsonErr == nil {
			return &def, nil
		}
		// Corrupt cache entry: drop it and fall through to the service.
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Warn().Err(err).Msg("definition cache read failed")
	}

	def, err := c.fetch(ctx, testID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(def); err == nil {
		if err := c.rdb.Set(ctx, key, raw, definitionTTL).Err(); err != nil {
			c.log.Warn().Err(err).Msg("definition cache write failed")
		}
	}

	return def, nil
}

func (c *Client) fetch(ctx context.Context, testID string) (*model.TestDefinition, error) {
	url := fmt.Sprintf("%s/tests/%s", c.baseURL, testID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch test: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTestNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var def model.TestDefinition
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}
	if def.ID == "" {
		def.ID = testID
	}
	return &def, nil
}
