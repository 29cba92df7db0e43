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
	"context"
	"log/slog"
)

// SecureLogger masks message text and attribute values before handing them to
// slog. Debug and Info are suppressed outside development so that verbose
// paths cannot leak in production even when the masker misses a pattern.
type SecureLogger struct {
	logger      *slog.Logger
	masker      *Masker
	development bool
}

// NewSecureLogger wraps logger with masking. When development is false, Debug
// and Info become no-ops.
func NewSecureLogger(logger *slog.Logger, masker *Masker, development bool) *SecureLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecureLogger{logger: logger, masker: masker, development: development}
}

func (l *SecureLogger) Debug(ctx context.Context, msg string, args ...any) {
	if !l.development {
		return
	}
	l.logger.DebugContext(ctx, MaskPatterns(msg), l.maskArgs(args)...)
}

func (l *SecureLogger) Info(ctx context.Context, msg string, args ...any) {
	if !l.development {
		return
	}
	l.logger.InfoContext(ctx, MaskPatterns(msg), l.maskArgs(args)...)
}

func (l *SecureLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, MaskPatterns(msg), l.maskArgs(args)...)
}

func (l *SecureLogger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, MaskPatterns(msg), l.maskArgs(args)...)
}

// maskArgs rewrites slog key/value pairs, masking string values by key name
// and structured values recursively.
func (l *SecureLogger) maskArgs(args []any) []any {
	out := make([]any, len(args))
	var key string
	for i, a := range args {
		switch v := a.(type) {
		case slog.Attr:
			out[i] = slog.Any(v.Key, l.maskResolved(v.Key, v.Value.Any()))
		case string:
			if i%2 == 0 {
				key = v
				out[i] = v
			} else {
				out[i] = l.masker.MaskField(key, v)
			}
		default:
			if i%2 == 1 {
				out[i] = l.maskResolved(key, a)
			} else {
				out[i] = a
			}
		}
	}
	return out
}

func (l *SecureLogger) maskResolved(key string, v any) any {
	switch val := v.(type) {
	case string:
		return l.masker.MaskField(key, val)
	case map[string]any, []any:
		return l.masker.MaskObject(val, MaskOptions{})
	default:
		return v
	}
}
