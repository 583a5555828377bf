package auth

import "codescout/internal/domain/models"

// JWTVerifier validates bearer tokens and extracts the caller's identity.
// Only identity extraction happens here; authorization rules live elsewhere.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
