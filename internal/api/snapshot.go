package api

import (
	"context"
	"fmt"
	"net/url"

	"showcase-tracker/internal/config"
	"showcase-tracker/internal/domain"

	"github.com/tidwall/gjson"
)

// Provider names the configured snapshot source.
func (c *Client) Provider() string {
	return c.provider
}

// Snapshot returns the raw showcase document for uid from the configured
// provider.
func (c *Client) Snapshot(ctx context.Context, uid string) ([]byte, error) {
	var base string
	switch c.provider {
	case config.ProviderMicroGG:
		base = c.endpoints.MicroGG
	default:
		base = c.endpoints.Enka
	}

	body, err := c.get(ctx, c.provider, base+"/api/uid/"+url.PathEscape(uid))
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, fmt.Errorf("%s returned a non-object document: %w", c.provider, domain.ErrMalformedSnapshot)
	}
	return body, nil
}
