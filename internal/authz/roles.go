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

// Role is the ordered portal role derived per request. Ordering is strict:
// guest < user < staff < manager < admin < super_admin < owner.
type Role string

const (
	RoleGuest      Role = "guest"
	RoleUser       Role = "user"
	RoleStaff      Role = "staff"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleOwner      Role = "owner"
)

// roleOrder indexes the hierarchy for minimum-role comparisons.
var roleOrder = map[Role]int{
	RoleGuest:      0,
	RoleUser:       1,
	RoleStaff:      2,
	RoleManager:    3,
	RoleAdmin:      4,
	RoleSuperAdmin: 5,
	RoleOwner:      6,
}

// Backend role slugs carried in the verified roles claim.
const (
	SlugStoreOwner   = "store_owner"
	SlugTenantOwner  = "tenant_owner"
	SlugStoreAdmin   = "store_admin"
	SlugStoreManager = "store_manager"
)

// HasMinimumRole reports whether role sits at or above required in the
// hierarchy. Unknown roles rank below guest.
func HasMinimumRole(role, required Role) bool {
	return roleOrder[role] >= roleOrder[required]
}

// deriveRole maps verified claims to a portal role. Platform owners are
// super_admin outright; otherwise the roles array decides, with any non-empty
// set granting at least staff.
func deriveRole(claims VerifiedClaims) Role {
	if claims.PlatformOwner {
		return RoleSuperAdmin
	}
	for _, slug := range claims.Roles {
		switch slug {
		case SlugStoreOwner, SlugTenantOwner:
			return RoleOwner
		}
	}
	for _, slug := range claims.Roles {
		if slug == SlugStoreAdmin {
			return RoleAdmin
		}
	}
	for _, slug := range claims.Roles {
		if slug == SlugStoreManager {
			return RoleManager
		}
	}
	if len(claims.Roles) > 0 {
		return RoleStaff
	}
	return RoleGuest
}
