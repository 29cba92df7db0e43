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

package cryptoutil

import (
	"context"
	"log/slog"
)

// EncryptPIIFields encrypts the named string fields of record in place and
// stores a {field}Hash companion for each so callers can keep equality
// lookups over the encrypted values. Non-string and absent fields are
// skipped.
func EncryptPIIFields(record map[string]any, fields []string, secret string) error {
	for _, field := range fields {
		raw, ok := record[field].(string)
		if !ok || raw == "" {
			continue
		}
		encrypted, err := Encrypt(raw, secret)
		if err != nil {
			return err
		}
		record[field] = encrypted
		record[field+"Hash"] = HashValue(raw)
	}
	return nil
}

// DecryptPIIFields reverses EncryptPIIFields. A field that fails to decrypt
// is treated as never having been encrypted: legacy plaintext records coexist
// with encrypted ones, so the raw value is passed through and the failure is
// logged rather than aborting the whole record.
func DecryptPIIFields(ctx context.Context, record map[string]any, fields []string, secret string) {
	for _, field := range fields {
		raw, ok := record[field].(string)
		if !ok || raw == "" {
			continue
		}
		plaintext, err := Decrypt(raw, secret)
		if err != nil {
			slog.DebugContext(ctx, "field decryption skipped, passing raw value through",
				slog.String("field", field),
			)
			continue
		}
		record[field] = plaintext
	}
}
