package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// keyPrefix namespaces proxy entries in a shared Redis instance so Clear
// can target only our keys.
const keyPrefix = "mexc"

// Key identifies a cached upstream response.
type Key struct {
	// Class is the endpoint class (e.g. ClassContractInfo) that selects
	// the TTL policy.
	Class string

	// Params are the normalized request parameters (e.g. symbol, uid).
	Params map[string]string
}

// Canonical returns the deterministic string form of the key.
// Format: mexc:<class>:k1=v1:k2=v2 with parameters sorted by name.
//
// Example:
//
//	mexc:market_data:symbol=BTC_USDT
func (k Key) Canonical() string {
	parts := []string{keyPrefix, k.Class}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	return strings.Join(parts, ":")
}

// String returns the fingerprint used as the stored key: the keyPrefix
// followed by the md5 hex digest of the canonical form. Hashing keeps keys
// short and uniform regardless of parameter size; identical logical
// requests always map to the same fingerprint.
func (k Key) String() string {
	sum := md5.Sum([]byte(k.Canonical()))
	return keyPrefix + ":" + hex.EncodeToString(sum[:])
}
