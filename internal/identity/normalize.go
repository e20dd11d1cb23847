// Package identity canonicalizes WhatsApp sender identifiers so that a user
// maps to exactly one session key regardless of the prefix variant the
// platform delivers.
package identity

import (
	"strings"
	"unicode"
)

// Normalizer rewrites the long national mobile form of an id to its short form.
//
// WhatsApp reports some Mexican mobile numbers as 521XXXXXXXXXX while the
// Graph API only accepts 52XXXXXXXXXX as a recipient. The rewrite is applied
// only when the id has the full long-form length, which keeps it idempotent.
type Normalizer struct {
	LongPrefix       string
	ShortPrefix      string
	SubscriberDigits int
}

// Default returns the normalizer for the 521 -> 52 rewrite.
func Default() Normalizer {
	return Normalizer{LongPrefix: "521", ShortPrefix: "52", SubscriberDigits: 10}
}

// Normalize returns the canonical form of raw. It never fails.
func (n Normalizer) Normalize(raw string) string {
	id := strings.TrimLeftFunc(raw, func(r rune) bool { return r == '+' || unicode.IsSpace(r) })
	id = strings.TrimRightFunc(id, unicode.IsSpace)
	if n.LongPrefix == "" || !strings.HasPrefix(id, n.LongPrefix) {
		return id
	}
	if n.SubscriberDigits > 0 && len(id) != len(n.LongPrefix)+n.SubscriberDigits {
		return id
	}
	return n.ShortPrefix + id[len(n.LongPrefix):]
}
