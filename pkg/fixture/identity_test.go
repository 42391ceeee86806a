package fixture

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateIdentity(t *testing.T) {
	a := GenerateIdentity("create_success:1")
	assert.Equal(t, a, GenerateIdentity("create_success:1"))
	assert.NotEqual(t, a, GenerateIdentity("create_success:2"))
	assert.Len(t, a, 16)
}

func TestNewSeed_Unique(t *testing.T) {
	seen := make(map[string]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := Email("login_valid", NewSeed("login_valid"))
			mu.Lock()
			seen[email] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 100)
}

func TestEmail(t *testing.T) {
	email := Email("duplicate_email", "seed")
	assert.True(t, strings.HasPrefix(email, "duplicate_email_"))
	assert.True(t, strings.HasSuffix(email, "@test.com"))
}
