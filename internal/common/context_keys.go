// File: internal/common/context_keys.go
package common

const (
	AuthorizationHeader     = "Authorization"
	AuthorizationTypeBearer = "Bearer"

	// Gin context keys set by the auth middleware.
	UserIDKey     = "userID"
	UserEmailKey  = "userEmail"
	UserGroupsKey = "userGroups"
)
