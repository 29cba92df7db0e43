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

import "regexp"

// Pattern detectors for PII embedded in free-text strings. These fire
// independently of field names, so a log message like
// "failed login for john@example.com" is still masked.
var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+`)

	// JWTs are three base64url segments, the first always "eyJ" (`{"` encoded).
	jwtPattern = regexp.MustCompile(`\beyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+`)

	bearerPattern = regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/=-]+`)

	// 13-19 digit runs with optional space/dash separators look like PANs.
	cardPattern = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)
)

// MaskPatterns substitutes recognized PII patterns inside a free-text string.
// Replacements never re-match their own detector, which keeps repeated
// masking a no-op.
func MaskPatterns(v string) string {
	out := bearerPattern.ReplaceAllString(v, "Bearer "+Redacted)
	out = jwtPattern.ReplaceAllString(out, "[JWT_REDACTED]")
	out = emailPattern.ReplaceAllStringFunc(out, MaskEmail)
	out = cardPattern.ReplaceAllStringFunc(out, MaskCard)
	return out
}
