package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/campusconnect/campusconnect-server/internal/store"
)

// Identity is the authenticated subject attached to a connection.
// It never changes for the lifetime of the connection.
type Identity struct {
	ID   int64
	Name string
	Role string
}

// TokenVerifier checks a bearer credential and returns the account id it names.
type TokenVerifier interface {
	VerifyToken(token string) (int64, error)
}

// AccountLookup loads accounts by id.
type AccountLookup interface {
	GetUserByID(ctx context.Context, id int64) (*store.User, error)
}

// Resolver maps a connection credential to an Identity.
type Resolver struct {
	verifier TokenVerifier
	accounts AccountLookup
	log      *zerolog.Logger
}

// NewResolver builds a resolver. logger may be nil.
func NewResolver(verifier TokenVerifier, accounts AccountLookup, logger *zerolog.Logger) *Resolver {
	return &Resolver{verifier: verifier, accounts: accounts, log: orNop(logger)}
}

// Resolve returns the identity behind credential, or nil for an anonymous connection.
// A missing, invalid or expired credential and an unknown subject all degrade to anonymous.
func (r *Resolver) Resolve(ctx context.Context, credential string) *Identity {
	if strings.TrimSpace(credential) == "" {
		return nil
	}

	userID, err := r.verifier.VerifyToken(credential)
	if err != nil {
		r.log.Debug().Err(err).Msg("credential rejected, connecting anonymously")
		return nil
	}

	user, err := r.accounts.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.log.Debug().Int64("user_id", userID).Msg("token subject not found, connecting anonymously")
		} else {
			r.log.Warn().Err(err).Int64("user_id", userID).Msg("account lookup failed, connecting anonymously")
		}
		return nil
	}

	return &Identity{ID: user.ID, Name: user.Name, Role: string(user.Role)}
}

func orNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger != nil {
		return logger
	}
	nop := zerolog.Nop()
	return &nop
}
