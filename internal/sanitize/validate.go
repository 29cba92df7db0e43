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

package sanitize

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Result is the outcome of a string validator: the normalized value plus a
// human-readable reason when invalid.
type Result struct {
	Valid     bool
	Sanitized string
	Err       string
}

var (
	emailRe    = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}$`)
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)
	slugRe     = regexp.MustCompile(`^[a-z0-9-]{2,100}$`)
	nonSlugRe  = regexp.MustCompile(`[^a-z0-9]+`)
	digitsRe   = regexp.MustCompile(`[0-9]`)
)

// Email trims, lowercases and validates a standard local@domain.tld shape.
func Email(input string) Result {
	v := strings.ToLower(strings.TrimSpace(input))
	if !emailRe.MatchString(v) {
		return Result{Sanitized: v, Err: "invalid email format"}
	}
	return Result{Valid: true, Sanitized: v}
}

// Phone normalizes to bare digits (keeping a leading +) and requires 7-15
// digits, ignoring separators.
func Phone(input string) Result {
	trimmed := strings.TrimSpace(input)
	var b strings.Builder
	for i, r := range trimmed {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	v := b.String()
	digits := len(digitsRe.FindAllString(v, -1))
	if digits < 7 || digits > 15 {
		return Result{Sanitized: v, Err: "phone number must contain 7-15 digits"}
	}
	return Result{Valid: true, Sanitized: v}
}

// URL requires a parseable absolute http or https URL.
func URL(input string) Result {
	v := strings.TrimSpace(input)
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return Result{Sanitized: v, Err: "invalid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Result{Sanitized: v, Err: "URL scheme must be http or https"}
	}
	return Result{Valid: true, Sanitized: u.String()}
}

// Slug converts arbitrary text to the category-slug convention: lowercase,
// non-alphanumeric runs collapsed to single hyphens, leading/trailing hyphens
// trimmed, 2-100 chars.
func Slug(input string) Result {
	v := strings.ToLower(strings.TrimSpace(input))
	v = nonSlugRe.ReplaceAllString(v, "-")
	v = strings.Trim(v, "-")
	if !slugRe.MatchString(v) {
		return Result{Sanitized: v, Err: "slug must be 2-100 characters of a-z, 0-9 and hyphens"}
	}
	return Result{Valid: true, Sanitized: v}
}

// Username restricts to 3-50 word characters, dots and hyphens.
func Username(input string) Result {
	v := strings.TrimSpace(input)
	if !usernameRe.MatchString(v) {
		return Result{Sanitized: v, Err: "username must be 3-50 characters of letters, digits, '_', '.' or '-'"}
	}
	return Result{Valid: true, Sanitized: v}
}

// FilePath normalizes a relative path and rejects traversal: any residual
// ".." segment or leading separator after cleaning fails validation.
func FilePath(input string) Result {
	v := strings.TrimSpace(input)
	if strings.ContainsRune(v, 0) {
		return Result{Sanitized: "", Err: "path contains null byte"}
	}
	cleaned := path.Clean(strings.ReplaceAll(v, "\\", "/"))
	if strings.HasPrefix(cleaned, "/") {
		return Result{Sanitized: cleaned, Err: "absolute paths are not allowed"}
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return Result{Sanitized: cleaned, Err: "path traversal is not allowed"}
	}
	return Result{Valid: true, Sanitized: cleaned}
}

// NumberConstraints bound Number validation.
type NumberConstraints struct {
	Min     *float64
	Max     *float64
	Integer bool
}

// NumberResult carries the clamped value alongside the failure reason so
// callers can surface both.
type NumberResult struct {
	Valid     bool
	Sanitized float64
	Err       string
}

// Number checks a numeric value against optional min/max/integer constraints.
// On violation the sanitized value is clamped (or truncated for the integer
// constraint) and the reason reported.
func Number(value float64, c NumberConstraints) NumberResult {
	res := NumberResult{Valid: true, Sanitized: value}
	if c.Integer && value != math.Trunc(value) {
		res.Valid = false
		res.Sanitized = math.Trunc(value)
		res.Err = "value must be an integer"
	}
	if c.Min != nil && res.Sanitized < *c.Min {
		res.Valid = false
		res.Sanitized = *c.Min
		res.Err = fmt.Sprintf("value must be >= %v", *c.Min)
	}
	if c.Max != nil && res.Sanitized > *c.Max {
		res.Valid = false
		res.Sanitized = *c.Max
		res.Err = fmt.Sprintf("value must be <= %v", *c.Max)
	}
	return res
}
