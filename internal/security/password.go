package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrHashing = errors.New("hashing failed")

type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash hashes a plain text password with bcrypt.
func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", errors.Join(ErrHashing, err)
	}

	return string(hash), nil
}

// Verify reports whether plain was hashed into hash. bcrypt's comparison is
// constant time over the digest; a mismatch and a match cost the same.
// Malformed stored hashes surface as ErrHashing, not as a mismatch.
func (h *Hasher) Verify(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	if err == nil {
		return true, nil
	}

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, errors.Join(ErrHashing, err)
}
