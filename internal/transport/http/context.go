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
	"context"

	"github.com/shopstack/admin-gateway/internal/authz"
)

type contextKey string

const userContextKey contextKey = "user_context"

// WithUserContext attaches the derived user context to a request context.
func WithUserContext(ctx context.Context, uc authz.UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// GetUserContext retrieves the derived user context. The zero value means
// extraction never ran (unauthenticated guest).
func GetUserContext(ctx context.Context) authz.UserContext {
	if val, ok := ctx.Value(userContextKey).(authz.UserContext); ok {
		return val
	}
	return authz.UserContext{UserRole: authz.RoleGuest}
}
