package fixture

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// identityNamespace scopes name-based identities to flowguard.
var identityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/entrhq/flowguard/identity"))

// GenerateIdentity derives a unique token from a seed. It is a pure
// function: the same seed always yields the same token, and distinct seeds
// yield distinct tokens. It is safe for concurrent use.
func GenerateIdentity(seed string) string {
	id := uuid.NewSHA1(identityNamespace, []byte(seed))
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}

// NewSeed returns a fresh seed for a label. Each call is unique, so two
// scenarios never collide in the shared account namespace.
func NewSeed(label string) string {
	return label + ":" + uuid.NewString()
}

// Email builds a test mailbox address for a seed.
func Email(prefix, seed string) string {
	return fmt.Sprintf("%s_%s@test.com", prefix, GenerateIdentity(seed))
}
