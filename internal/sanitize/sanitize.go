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
	"html"
	"regexp"
	"strings"
)

// Options controls the Sanitize pipeline.
type Options struct {
	// MaxLength truncates after trimming. Zero means the default of 1000.
	MaxLength int

	// EscapeHTML entity-escapes markup. When false, tags outside
	// AllowedTags are stripped instead.
	EscapeHTML bool

	// AllowedTags is the tag allowlist used when EscapeHTML is false.
	AllowedTags []string

	Lowercase bool
}

const defaultMaxLength = 1000

var tagRe = regexp.MustCompile(`(?is)</?([a-z][a-z0-9]*)\b[^>]*>`)

// Sanitize runs the standard input pipeline: null-byte removal, trim,
// truncation, HTML escaping or tag stripping, then optional lowercasing.
func Sanitize(input string, opts Options) string {
	v := strings.ReplaceAll(input, "\x00", "")
	v = strings.TrimSpace(v)

	maxLen := opts.MaxLength
	if maxLen <= 0 {
		maxLen = defaultMaxLength
	}
	if len(v) > maxLen {
		v = v[:maxLen]
	}

	if opts.EscapeHTML {
		v = html.EscapeString(v)
	} else {
		v = stripTags(v, opts.AllowedTags)
	}

	if opts.Lowercase {
		v = strings.ToLower(v)
	}
	return v
}

func stripTags(v string, allowed []string) string {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, t := range allowed {
		allowSet[strings.ToLower(t)] = struct{}{}
	}
	return tagRe.ReplaceAllStringFunc(v, func(tag string) string {
		name := strings.ToLower(tagRe.FindStringSubmatch(tag)[1])
		if _, ok := allowSet[name]; ok {
			return tag
		}
		return ""
	})
}

// Hostile attribute/URL patterns removed by SanitizeHTML.
var (
	eventAttrRe  = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	jsURLRe      = regexp.MustCompile(`(?i)(href|src)\s*=\s*("javascript:[^"]*"|'javascript:[^']*'|javascript:[^\s>]+)`)
	dataURLRe    = regexp.MustCompile(`(?i)(href|src)\s*=\s*("data:[^"]*"|'data:[^']*'|data:[^\s>]+)`)
	dataImageRe  = regexp.MustCompile(`(?i)^(href|src)\s*=\s*['"]?data:image/`)
	attrRe       = regexp.MustCompile(`(?i)\s+([a-z-]+)\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	allowedAttrs = map[string]struct{}{
		"href": {}, "src": {}, "alt": {}, "title": {}, "class": {}, "id": {},
		"width": {}, "height": {}, "target": {}, "rel": {},
	}
)

// SanitizeHTML strips active content from markup: inline event handlers,
// javascript: URLs, non-image data: URLs, and any attribute outside the
// allowlist. Tag structure itself is left to the caller's tag policy.
func SanitizeHTML(input string) string {
	v := eventAttrRe.ReplaceAllString(input, "")
	v = jsURLRe.ReplaceAllString(v, "")
	v = dataURLRe.ReplaceAllStringFunc(v, func(m string) string {
		if dataImageRe.MatchString(strings.TrimSpace(m)) {
			return m
		}
		return ""
	})
	v = attrRe.ReplaceAllStringFunc(v, func(m string) string {
		name := strings.ToLower(attrRe.FindStringSubmatch(m)[1])
		if _, ok := allowedAttrs[name]; ok {
			return m
		}
		return ""
	})
	return v
}
