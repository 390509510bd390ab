package upstream

import (
	"context"
	"net/url"
	"strconv"
)

// Read endpoints. These return the exchange's raw JSON body; the proxy
// caches and forwards them without reshaping.

// ContractDetail fetches contract specifications. An empty symbol returns
// all contracts.
func (c *Client) ContractDetail(ctx context.Context, symbol string) ([]byte, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	return c.Get(ctx, "api/v1/contract/detail", query, nil)
}

// Ticker fetches the latest ticker. An empty symbol returns all tickers.
func (c *Client) Ticker(ctx context.Context, symbol string) ([]byte, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	return c.Get(ctx, "api/v1/contract/ticker", query, nil)
}

// Depth fetches the order book for a symbol. A limit of 0 uses the
// exchange default.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) ([]byte, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return c.Get(ctx, "api/v1/contract/depth/"+symbol, query, nil)
}

// FundingRate fetches the current funding rate for a symbol.
func (c *Client) FundingRate(ctx context.Context, symbol string) ([]byte, error) {
	return c.Get(ctx, "api/v1/contract/funding_rate/"+symbol, nil, nil)
}

// OpenPositions fetches the caller's open positions, optionally restricted
// to one symbol. Requires credentials.
func (c *Client) OpenPositions(ctx context.Context, creds *Credentials, symbol string) ([]byte, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	return c.Get(ctx, "api/v1/private/position/open_positions", query, creds)
}
