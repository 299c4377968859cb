package constants

const (
	// Auth domain errors
	ErrCodeInvalidCredentials  = "AUTH_001" // bad email/password or inactive account
	ErrCodeInvalidRefreshToken = "AUTH_002" // refresh token invalid, expired, or wrong kind
	ErrCodeUnauthorized        = "AUTH_003" // missing/invalid bearer token on a protected route
	ErrCodeOAuthFailed         = "AUTH_005" // unknown provider or failed id-token verification

	// User domain errors
	ErrCodeUserNotFound = "USER_001"
	ErrCodeUserExists   = "USER_002" // duplicate email or nickname

	// Transport errors
	ErrCodeInvalidRequest    = "REQ_001"
	ErrCodeRateLimitExceeded = "REQ_002"
	ErrCodeInternal          = "SRV_001"
)

// IDRandomBytes is the number of random bytes in generated entity IDs.
// IDs look like "usr_<hex>"; 16 bytes gives 128 bits of entropy.
const IDRandomBytes = 16
