package api

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPasswordHash is returned when a configured bcrypt hash cannot be used
var ErrInvalidPasswordHash = errors.New("invalid bcrypt password hash")

// basicAuthenticator checks HTTP Basic credentials against a single account.
// With a bcrypt hash configured the plain password is ignored.
type basicAuthenticator struct {
	username     []byte
	password     []byte
	passwordHash []byte
}

func newBasicAuthenticator(username, password, passwordHash string) (*basicAuthenticator, error) {
	a := &basicAuthenticator{
		username: []byte(username),
		password: []byte(password),
	}
	if passwordHash != "" {
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPasswordHash, err)
		}
		a.passwordHash = []byte(passwordHash)
	}
	return a, nil
}

// Verify compares both fields without short-circuiting so a wrong username
// costs the same as a wrong password.
func (a *basicAuthenticator) Verify(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), a.username) == 1

	var passOK bool
	if a.passwordHash != nil {
		passOK = bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), a.password) == 1
	}

	return userOK && passOK
}
