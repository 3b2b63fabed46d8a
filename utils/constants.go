package utils

import (
	"time"
)

type contextKey string

// Request context keys
const (
	RequestIDKey contextKey = "request_id"
	UserAgentKey contextKey = "user_agent"
	IPAddressKey contextKey = "ip_address"
	EndpointKey  contextKey = "endpoint"
	TimeoutKey   contextKey = "timeout"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Registration constants
const (
	// DefaultRegNoPrefix is prepended to the id-derived registration code
	DefaultRegNoPrefix = "RBG-"

	// RegNoSuffixLength is the number of trailing id characters used in a registration code
	RegNoSuffixLength = 5

	// DefaultListLimit caps the number of submissions returned by the listing endpoint
	DefaultListLimit = 200

	// RequestTimeout bounds the store round-trips of a single request
	RequestTimeout = 30 * time.Second
)

// Cache keys (prefixed with CacheConfig.RedisPrefix)
const (
	RecentSubmissionsCacheKey = "submissions:recent"
	PhoneNotifyLockKeyPrefix  = "sms:lock:"
)
