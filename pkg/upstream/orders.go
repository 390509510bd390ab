package upstream

import (
	"context"

	"github.com/google/uuid"
)

// Trade sides as the exchange encodes them.
const (
	SideOpenLong   = 1
	SideCloseShort = 2
	SideOpenShort  = 3
	SideCloseLong  = 4
)

// Margin modes.
const (
	MarginIsolated = 1
	MarginCross    = 2
)

// TradeSide maps an action name from the trade API onto the exchange's
// numeric side. The second return is false for unknown actions.
//
//	buy         -> open long
//	sell        -> open short
//	broughtsell -> close long
//	soldbuy     -> close short
func TradeSide(action string) (int, bool) {
	switch action {
	case "buy":
		return SideOpenLong, true
	case "sell":
		return SideOpenShort, true
	case "broughtsell":
		return SideCloseLong, true
	case "soldbuy":
		return SideCloseShort, true
	default:
		return 0, false
	}
}

// OrderRequest is the order submission payload in the exchange's wire
// shape. Optional fields are pointers so absent values are omitted rather
// than sent as zeros.
type OrderRequest struct {
	Symbol          string   `json:"symbol"`
	Price           float64  `json:"price"`
	Vol             float64  `json:"vol"`
	Leverage        int      `json:"leverage,omitempty"`
	Side            int      `json:"side"`
	Type            int      `json:"type"`
	OpenType        int      `json:"openType"`
	PositionID      *int64   `json:"positionId,omitempty"`
	ExternalOID     string   `json:"externalOid,omitempty"`
	StopLossPrice   *float64 `json:"stopLossPrice,omitempty"`
	TakeProfitPrice *float64 `json:"takeProfitPrice,omitempty"`
	PositionMode    int      `json:"positionMode,omitempty"`
	ReduceOnly      bool     `json:"reduceOnly"`
	PostOnly        bool     `json:"postOnly"`
}

// PlaceOrder submits an order. An external order ID is generated when the
// request does not carry one, so a submission can be traced even if the
// response is lost.
func (c *Client) PlaceOrder(ctx context.Context, creds *Credentials, order OrderRequest) ([]byte, error) {
	if order.ExternalOID == "" {
		order.ExternalOID = uuid.NewString()
	}
	return c.Post(ctx, "api/v1/private/order/submit", order, creds)
}

// CancelAllOrders cancels all open orders, optionally restricted to one
// symbol.
func (c *Client) CancelAllOrders(ctx context.Context, creds *Credentials, symbol string) ([]byte, error) {
	body := map[string]string{}
	if symbol != "" {
		body["symbol"] = symbol
	}
	return c.Post(ctx, "api/v1/private/order/cancel_all", body, creds)
}
