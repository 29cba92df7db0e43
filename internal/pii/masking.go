// Copyright 2026 The ShopStack Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pii

import (
	"strings"
)

// Redacted is the literal substituted for values that must never appear in
// logs, even partially.
const Redacted = "[REDACTED]"

// MaxDepthExceeded is the sentinel placed where an object graph exceeds the
// masking depth bound.
const MaxDepthExceeded = "[MAX_DEPTH_EXCEEDED]"

// Strategy selects the masking function applied to a classified field.
type Strategy string

const (
	StrategyRedact  Strategy = "redact"
	StrategyEmail   Strategy = "email"
	StrategyPhone   Strategy = "phone"
	StrategyName    Strategy = "name"
	StrategyCard    Strategy = "card"
	StrategyIP      Strategy = "ip"
	StrategyGeneric Strategy = "generic"
)

// FieldClass maps field-name substrings to a masking strategy. Classes are
// checked in order; the first match wins.
type FieldClass struct {
	Substrings []string
	Strategy   Strategy
}

// DefaultFieldClasses is the stock classification table. It is configuration
// data: deployments extend it via MaskerConfig rather than code changes.
// Credential-bearing names are listed first so that e.g. "email_token" is
// redacted outright instead of email-masked.
var DefaultFieldClasses = []FieldClass{
	{Substrings: []string{"password", "secret", "token", "apikey", "api_key", "authorization", "credential", "private_key", "ssn", "aadhaar", "tfn", "pan_number"}, Strategy: StrategyRedact},
	{Substrings: []string{"email", "e_mail"}, Strategy: StrategyEmail},
	{Substrings: []string{"phone", "mobile", "msisdn"}, Strategy: StrategyPhone},
	{Substrings: []string{"card", "cc_number"}, Strategy: StrategyCard},
	{Substrings: []string{"first_name", "last_name", "full_name", "firstname", "lastname", "fullname", "name"}, Strategy: StrategyName},
	{Substrings: []string{"ip_address", "ipaddress", "client_ip", "remote_addr"}, Strategy: StrategyIP},
	{Substrings: []string{"address", "street", "city", "postcode", "zip"}, Strategy: StrategyGeneric},
	{Substrings: []string{"dob", "birth"}, Strategy: StrategyGeneric},
}

// MaskOptions bounds a MaskObject traversal.
type MaskOptions struct {
	// MaxDepth limits recursion into nested maps/slices. Zero means the
	// default of 8.
	MaxDepth int
}

const defaultMaxDepth = 8

// Masker applies field- and pattern-driven PII masking. The zero value is not
// usable; construct with NewMasker.
type Masker struct {
	classes []FieldClass
}

// MaskerConfig customizes a Masker. ExtraClasses are checked before the
// default table.
type MaskerConfig struct {
	ExtraClasses []FieldClass
}

// NewMasker builds a Masker from the default classification table plus any
// deployment-specific additions.
func NewMasker(cfg MaskerConfig) *Masker {
	classes := make([]FieldClass, 0, len(cfg.ExtraClasses)+len(DefaultFieldClasses))
	classes = append(classes, cfg.ExtraClasses...)
	classes = append(classes, DefaultFieldClasses...)
	return &Masker{classes: classes}
}

// classify returns the strategy for a field name, or "" when the name is not
// recognized as PII-bearing.
func (m *Masker) classify(field string) Strategy {
	lower := strings.ToLower(field)
	for _, class := range m.classes {
		for _, sub := range class.Substrings {
			if strings.Contains(lower, sub) {
				return class.Strategy
			}
		}
	}
	return ""
}

// MaskObject deep-copies an object graph, masking every leaf according to its
// field classification or, for free-text strings under unclassified keys,
// embedded PII patterns. The input is never mutated. Masking is idempotent:
// masked output no longer matches the detectors that produced it.
func (m *Masker) MaskObject(v any, opts MaskOptions) any {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return m.maskValue("", v, maxDepth)
}

func (m *Masker) maskValue(field string, v any, depth int) any {
	if depth <= 0 {
		return MaxDepthExceeded
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = m.maskValue(k, item, depth-1)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = m.maskValue(field, item, depth-1)
		}
		return out
	case string:
		return m.MaskField(field, val)
	default:
		// Non-string scalars carry no PII patterns.
		return v
	}
}

// MaskField masks a single string value under the given field name. Names
// that classify as PII get the strategy-specific mask; everything else is
// scanned for embedded patterns.
func (m *Masker) MaskField(field, value string) string {
	switch m.classify(field) {
	case StrategyRedact:
		return Redacted
	case StrategyEmail:
		return MaskEmail(value)
	case StrategyPhone:
		return MaskPhone(value)
	case StrategyName:
		return MaskName(value)
	case StrategyCard:
		return MaskCard(value)
	case StrategyIP:
		return MaskIP(value)
	case StrategyGeneric:
		return MaskGeneric(value)
	default:
		return MaskPatterns(value)
	}
}

// alreadyMasked reports whether a value carries mask output. Raw emails,
// phones, names and cards never contain an asterisk, so the presence of one
// (or the redaction sentinel) marks the value as masked. This is what makes
// re-masking a no-op.
func alreadyMasked(v string) bool {
	return strings.ContainsRune(v, '*') || strings.Contains(v, Redacted)
}

// MaskEmail masks an address to first-letter local and domain parts:
// "john.doe@example.com" -> "j***@e***.com".
func MaskEmail(v string) string {
	if alreadyMasked(v) {
		return v
	}
	at := strings.LastIndex(v, "@")
	if at <= 0 || at == len(v)-1 {
		return Redacted
	}
	local, domain := v[:at], v[at+1:]

	masked := string(local[0]) + "***"

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 {
		return masked + "@" + string(domain[0]) + "***"
	}
	return masked + "@" + string(domain[0]) + "***" + domain[dot:]
}

// MaskPhone keeps a 2-digit prefix and the last 4 digits.
func MaskPhone(v string) string {
	if alreadyMasked(v) {
		return v
	}
	digits := digitsOf(v)
	if len(digits) < 7 {
		return Redacted
	}
	return digits[:2] + strings.Repeat("*", len(digits)-6) + digits[len(digits)-4:]
}

// MaskName keeps the first letter of each word: "John Doe" -> "J*** D***".
func MaskName(v string) string {
	if alreadyMasked(v) {
		return v
	}
	words := strings.Fields(v)
	if len(words) == 0 {
		return v
	}
	for i, w := range words {
		words[i] = string([]rune(w)[0]) + "***"
	}
	return strings.Join(words, " ")
}

// MaskCard keeps only the last 4 digits.
func MaskCard(v string) string {
	if alreadyMasked(v) {
		return v
	}
	digits := digitsOf(v)
	if len(digits) < 4 {
		return Redacted
	}
	return "**** **** **** " + digits[len(digits)-4:]
}

// MaskIP keeps the first two octets of an IPv4 address. Anything else is
// redacted.
func MaskIP(v string) string {
	if alreadyMasked(v) {
		return v
	}
	parts := strings.Split(v, ".")
	if len(parts) != 4 {
		return Redacted
	}
	return parts[0] + "." + parts[1] + ".*.*"
}

// MaskGeneric keeps the first and last two characters of longer values.
func MaskGeneric(v string) string {
	if alreadyMasked(v) {
		return v
	}
	runes := []rune(v)
	if len(runes) <= 4 {
		return Redacted
	}
	return string(runes[:2]) + "***" + string(runes[len(runes)-2:])
}

func digitsOf(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
