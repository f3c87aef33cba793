package models

import "github.com/golang-jwt/jwt/v5"

// ActorRole represents who is acting on a commission.
type ActorRole string

const (
	RoleClient ActorRole = "CLIENT"
	RoleArtist ActorRole = "ARTIST"
	RoleAdmin  ActorRole = "ADMIN"
)

// Claims represents the JWT payload for access tokens. Token issuance lives
// with the identity provider; this service only validates.
type Claims struct {
	ActorID string    `json:"actor_id"`
	Role    ActorRole `json:"role"`
	Email   string    `json:"email"`
	jwt.RegisteredClaims
}
