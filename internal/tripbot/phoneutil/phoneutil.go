package phoneutil

import (
	"fmt"
	"strings"
)

// CountryCode is the dialing prefix stripped during normalization.
const CountryCode = "55"

// Digits keeps only the ASCII digits of s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize strips non-digits and drops the country prefix from full
// international numbers, so "+55 (11) 98765-4321" and "11987654321" compare equal.
func Normalize(s string) string {
	d := Digits(s)
	if strings.HasPrefix(d, CountryCode) && len(d) >= 12 {
		d = d[len(CountryCode):]
	}
	return d
}

// LastFour returns the confirmation code derived from a phone number.
func LastFour(s string) string {
	d := Digits(s)
	if len(d) <= 4 {
		return d
	}
	return d[len(d)-4:]
}

// Format renders a number as (AA)NNNNN-NNNN for message bodies. Numbers of
// unexpected length are returned unchanged.
func Format(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	d := Digits(s)
	if strings.HasPrefix(d, CountryCode) && len(d) > 11 {
		d = d[len(CountryCode):]
	}
	switch len(d) {
	case 11:
		return fmt.Sprintf("(%s)%s-%s", d[:2], d[2:7], d[7:])
	case 10:
		return fmt.Sprintf("(%s)%s-%s", d[:2], d[2:6], d[6:])
	}
	return s
}

// ChatID turns a recipient into a gateway chat id. Values that already carry
// a domain ("...@c.us", "...@lid") pass through untouched.
func ChatID(recipient string) string {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" || strings.Contains(recipient, "@") {
		return recipient
	}
	d := Digits(recipient)
	if len(d) == 10 || len(d) == 11 {
		d = CountryCode + d
	}
	return d + "@c.us"
}

// SenderPhone extracts the phone part of a sender id. Ids of the "@lid"
// kind carry an opaque identifier instead of a number and yield ok=false.
func SenderPhone(senderID string) (phone string, ok bool) {
	if IsOpaqueID(senderID) {
		return "", false
	}
	local := senderID
	if i := strings.Index(senderID, "@"); i >= 0 {
		local = senderID[:i]
	}
	return Normalize(local), true
}

// IsOpaqueID reports whether the sender id carries no matchable phone number.
func IsOpaqueID(senderID string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(senderID)), "@lid")
}
