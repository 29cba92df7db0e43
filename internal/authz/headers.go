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

package authz

import (
	"net/http"
	"strings"
)

// protectedForwardHeaders are the only identity headers relayed to backend
// services, and the keys that overrides may never set. Roles are deliberately
// not forwarded: each backend re-derives them from the verified token.
var protectedForwardHeaders = []string{
	HeaderClaimTenantID,
	HeaderClaimSub,
	HeaderClaimEmail,
	"Authorization",
}

// AuthorizedHeaders builds the header set forwarded to a backend service:
// the protected identity headers copied from the inbound request, plus any
// caller overrides. Override attempts on protected keys are silently dropped,
// never merged.
func AuthorizedHeaders(r *http.Request, overrides map[string]string) http.Header {
	out := http.Header{}

	for _, key := range protectedForwardHeaders {
		if value := r.Header.Get(key); value != "" {
			out.Set(key, value)
		}
	}

	for key, value := range overrides {
		if isProtectedForwardHeader(key) {
			continue
		}
		out.Set(key, value)
	}
	return out
}

func isProtectedForwardHeader(key string) bool {
	for _, protected := range protectedForwardHeaders {
		if strings.EqualFold(key, protected) {
			return true
		}
	}
	return false
}
