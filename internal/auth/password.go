package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor used in production.
//
// COST TUNING:
// Each +1 doubles the hashing time. 12 is roughly 250ms on a current server,
// which nobody notices at login but makes guessing a leaked hash slow.
// Raising it later is safe: Verify reads the cost out of each stored hash,
// so old accounts keep working and pick the new cost up on their next reset.
const defaultCost = 12

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords with bcrypt.
//
// WHY BCRYPT?
// It is deliberately slow and salts every hash, so two authors with the same
// password end up with different password_hash values. The salt and the cost
// are embedded in the output, so users.password_hash is the only column
// needed:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost
//	 version
//
// Accounts created through GitHub sign-in have an empty hash. Verify never
// matches it, so those users cannot fall back to a password login.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Tests in other packages pass bcrypt.MinCost (4) to keep hashing fast.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext.
// bcrypt silently truncates input past 72 bytes, so longer passwords are rejected.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks plaintext against a stored hash in constant time.
// A wrong password yields ErrPasswordMismatch; a malformed hash yields another error.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
