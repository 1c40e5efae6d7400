package auth

import (
	"context"
	"errors"
)

// Identity is the authenticated caller.
type Identity struct {
	Subject string
	Role    string
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

var ErrNoVerifier = errors.New("auth: no verifier accepted the token")

// Chain tries each verifier in order and returns the first success.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, token string) (Identity, error) {
	errs := make([]error, 0, len(c))
	for _, v := range c {
		id, err := v.Verify(ctx, token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Identity{}, ErrNoVerifier
	}
	return Identity{}, errors.Join(errs...)
}
