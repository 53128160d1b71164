package auth

import "github.com/NordCoder/EduPortal/internal/domain/profile"

type AccessClaims struct {
	Sub  string       `json:"sub"`  // profile id
	Role profile.Role `json:"role"` // role at issue time
	Iat  int64        `json:"iat"`  // created at
	Exp  int64        `json:"exp"`  // expires at
}

// Identity is the signed-in caller.
type Identity struct {
	ID   int64
	Role profile.Role
}

func (i Identity) Is(roles ...profile.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
