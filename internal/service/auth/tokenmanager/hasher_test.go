package tokenmanager

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := bcryptHasher{}

	t.Run("hash is salted", func(t *testing.T) {
		token := "eyJhbGciOiJIUzI1NiJ9.some.token"

		first, err := hasher.Hash(token)
		require.NoError(t, err)
		second, err := hasher.Hash(token)
		require.NoError(t, err)

		assert.NotEqual(t, first, second, "same token hashed twice should differ")
		assert.NoError(t, hasher.Compare(first, token))
		assert.NoError(t, hasher.Compare(second, token))
	})

	t.Run("compare wrong token fails", func(t *testing.T) {
		hash, err := hasher.Hash("token-one")
		require.NoError(t, err)

		err = hasher.Compare(hash, "token-two")

		require.Error(t, err)
	})

	t.Run("long tokens supported", func(t *testing.T) {
		// JWT strings are way past the 72 byte bcrypt input limit
		token := strings.Repeat("eyJhbGciOiJIUzI1NiJ9", 30)

		hash, err := hasher.Hash(token)

		require.NoError(t, err)
		assert.NoError(t, hasher.Compare(hash, token))
		assert.Error(t, hasher.Compare(hash, token+"x"), "tail changes must be detected")
	})
}
