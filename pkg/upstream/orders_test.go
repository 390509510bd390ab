package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/tradekit/mexc-trading-proxy/internal/testutil"
)

func TestTradeSide(t *testing.T) {
	tests := []struct {
		action string
		side   int
		ok     bool
	}{
		{"buy", SideOpenLong, true},
		{"sell", SideOpenShort, true},
		{"broughtsell", SideCloseLong, true},
		{"soldbuy", SideCloseShort, true},
		{"hold", 0, false},
		{"", 0, false},
		{"BUY", 0, false}, // case is normalized by the handler, not here
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			side, ok := TradeSide(tt.action)
			if side != tt.side || ok != tt.ok {
				t.Errorf("TradeSide(%q) = (%d, %v), want (%d, %v)",
					tt.action, side, ok, tt.side, tt.ok)
			}
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	var captured map[string]any
	mock.SetHandler("/api/v1/private/order/submit", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("Order body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"code":0,"data":{"orderId":12345}}`))
	})

	client := newTestClient(t, mock)
	creds := &Credentials{Auth: "auth-1", Token: "tok-1", Hash: "hash-1"}

	order := OrderRequest{
		Symbol:   "BTC_USDT",
		Price:    50000,
		Vol:      1,
		Leverage: 10,
		Side:     SideOpenLong,
		Type:     5,
		OpenType: MarginIsolated,
	}

	data, err := client.PlaceOrder(context.Background(), creds, order)
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if string(data) != `{"success":true,"code":0,"data":{"orderId":12345}}` {
		t.Errorf("Response mismatch: got %s", data)
	}

	if captured["symbol"] != "BTC_USDT" {
		t.Errorf("symbol: got %v", captured["symbol"])
	}
	if captured["side"] != float64(SideOpenLong) {
		t.Errorf("side: got %v", captured["side"])
	}
	if captured["openType"] != float64(MarginIsolated) {
		t.Errorf("openType: got %v", captured["openType"])
	}
	// An external order ID is generated when not supplied.
	if oid, _ := captured["externalOid"].(string); oid == "" {
		t.Error("externalOid should be generated when absent")
	}
	// Optional fields stay absent rather than being sent as zeros.
	if _, present := captured["stopLossPrice"]; present {
		t.Error("stopLossPrice should be omitted when unset")
	}
}

func TestPlaceOrder_KeepsSuppliedExternalOID(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	var captured map[string]any
	mock.SetHandler("/api/v1/private/order/submit", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Write([]byte(`{"success":true}`))
	})

	client := newTestClient(t, mock)

	order := OrderRequest{Symbol: "ETH_USDT", Side: SideOpenShort, Type: 5, OpenType: MarginCross, ExternalOID: "my-oid-1"}
	if _, err := client.PlaceOrder(context.Background(), nil, order); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if captured["externalOid"] != "my-oid-1" {
		t.Errorf("externalOid: got %v, want my-oid-1", captured["externalOid"])
	}
}

func TestCancelAllOrders(t *testing.T) {
	mock := testutil.NewMockExchange()
	defer mock.Close()

	var captured map[string]any
	mock.SetHandler("/api/v1/private/order/cancel_all", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Write([]byte(`{"success":true,"code":0}`))
	})

	client := newTestClient(t, mock)

	if _, err := client.CancelAllOrders(context.Background(), nil, "BTC_USDT"); err != nil {
		t.Fatalf("CancelAllOrders failed: %v", err)
	}
	if captured["symbol"] != "BTC_USDT" {
		t.Errorf("symbol: got %v", captured["symbol"])
	}

	// Without a symbol the body carries no symbol field.
	captured = nil
	if _, err := client.CancelAllOrders(context.Background(), nil, ""); err != nil {
		t.Fatalf("CancelAllOrders without symbol failed: %v", err)
	}
	if _, present := captured["symbol"]; present {
		t.Error("symbol should be omitted when empty")
	}
}
