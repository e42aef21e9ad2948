package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the claims of a session access token
type AccessClaims struct {
	jwt.RegisteredClaims
}
