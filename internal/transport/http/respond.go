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

package http

import (
	"encoding/json"
	"net/http"

	"github.com/shopstack/admin-gateway/internal/authz"
	"github.com/shopstack/admin-gateway/internal/proxy"
)

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondData wraps a payload in the standard success envelope.
func respondData(w http.ResponseWriter, status int, data any) {
	respondJSON(w, status, proxy.Success(data))
}

// respondError emits the standard error envelope.
func respondError(w http.ResponseWriter, status int, message string, details any) {
	respondJSON(w, status, proxy.Error(message, status, details))
}

// respondAuthError maps an authorization failure onto the error envelope,
// carrying the taxonomy code in details.
func respondAuthError(w http.ResponseWriter, authErr *authz.AuthError) {
	respondError(w, authErr.Status, authErr.Message, map[string]string{"code": authErr.Code})
}
