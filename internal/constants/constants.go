package constants

import "time"

// Session and context keys
const (
	SessionCookieName     = "annonest_session"
	ContextKeyUserID      = "user_id"
	ContextKeyCurrentUser = "current_user"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const (
	MinPasswordLength = 8
	DefaultTrialDays  = 14
)

// Entity edit locks
const (
	DefaultLockTTL = 10 * time.Minute
)

// Bulk upload limits
const (
	MaxUploadBytes       = 10 << 20
	MaxBulkAssignees     = 50
	MaxBulkEntityItems   = 1000
	MaxAISuggestedTags   = 10
	MaxAIArticleTextSize = 12000
)
