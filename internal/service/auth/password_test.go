package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptVerifier_Compare(t *testing.T) {
	t.Parallel()

	// MinCost keeps hashing fast in tests.
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)

	verifier := NewBcryptVerifier()

	t.Run("accepts the matching password", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, verifier.Compare(string(hash), "correct-horse-battery"))
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, verifier.Compare(string(hash), "wrong-password-entirely"))
	})

	t.Run("rejects a garbage hash", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, verifier.Compare("not-a-bcrypt-hash", "correct-horse-battery"))
	})
}
