package cache

import (
	"strings"
	"testing"
)

func TestKey_Canonical_Deterministic(t *testing.T) {
	k1 := Key{Class: ClassMarketData, Params: map[string]string{"symbol": "BTC_USDT", "limit": "20"}}
	k2 := Key{Class: ClassMarketData, Params: map[string]string{"limit": "20", "symbol": "BTC_USDT"}}

	if k1.Canonical() != k2.Canonical() {
		t.Errorf("Canonical forms differ for identical logical keys:\n%s\n%s",
			k1.Canonical(), k2.Canonical())
	}
}

func TestKey_Canonical_SortedParams(t *testing.T) {
	k := Key{Class: ClassPositions, Params: map[string]string{
		"uid":    "u1",
		"symbol": "ETH_USDT",
		"page":   "1",
	}}

	want := "mexc:positions:page=1:symbol=ETH_USDT:uid=u1"
	if got := k.Canonical(); got != want {
		t.Errorf("Canonical: got %s, want %s", got, want)
	}
}

func TestKey_Canonical_NoParams(t *testing.T) {
	k := Key{Class: ClassContractInfo}
	if got := k.Canonical(); got != "mexc:contract_info" {
		t.Errorf("Canonical: got %s", got)
	}
}

func TestKey_String_Fingerprint(t *testing.T) {
	k := Key{Class: ClassMarketData, Params: map[string]string{"symbol": "BTC_USDT"}}

	s := k.String()
	if !strings.HasPrefix(s, "mexc:") {
		t.Errorf("Fingerprint missing prefix: %s", s)
	}
	// md5 hex digest after the prefix
	if len(s) != len("mexc:")+32 {
		t.Errorf("Fingerprint length: got %d, want %d", len(s), len("mexc:")+32)
	}

	// Stable across calls
	if s != k.String() {
		t.Error("Fingerprint not stable across calls")
	}
}

func TestKey_String_DistinctForDifferentParams(t *testing.T) {
	base := Key{Class: ClassPositions, Params: map[string]string{"uid": "u1", "symbol": "BTC_USDT"}}

	variants := []Key{
		{Class: ClassPositions, Params: map[string]string{"uid": "u2", "symbol": "BTC_USDT"}},
		{Class: ClassPositions, Params: map[string]string{"uid": "u1", "symbol": "ETH_USDT"}},
		{Class: ClassPositions, Params: map[string]string{"uid": "u1"}},
		{Class: ClassMarketData, Params: map[string]string{"uid": "u1", "symbol": "BTC_USDT"}},
	}

	for _, v := range variants {
		if v.String() == base.String() {
			t.Errorf("Distinct logical keys collided: %s vs %s", v.Canonical(), base.Canonical())
		}
	}
}
