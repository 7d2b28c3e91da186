package tokenmanager

import (
	"crypto/sha256"

	"golang.org/x/crypto/bcrypt"
)

// Default ledger hasher: sha256 then bcrypt.
// The sha256 step works around bcrypt's 72 byte input limit, encoded
// JWTs are much longer than that.
type bcryptHasher struct{}

func (h bcryptHasher) Hash(token string) (string, error) {
	sum := sha256.Sum256([]byte(token))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	return string(hash), err
}

func (h bcryptHasher) Compare(hashedToken string, token string) error {
	sum := sha256.Sum256([]byte(token))
	return bcrypt.CompareHashAndPassword([]byte(hashedToken), sum[:])
}
