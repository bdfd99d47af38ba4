package auth

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// Identity is the authenticated caller, resolved once per request.
type Identity struct {
	UserID   int
	Username string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(IdentityKey, id)
}

// IdentityFromContext extracts the caller set by the auth middleware.
func IdentityFromContext(c *gin.Context) (Identity, error) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return Identity{}, fmt.Errorf("identity not found in context")
	}

	id, ok := v.(Identity)
	if !ok {
		return Identity{}, fmt.Errorf("invalid identity type")
	}

	return id, nil
}
