package ports

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// PropertyRegistrar persists completed property registrations.
type PropertyRegistrar interface {
	// Register stores a registration and returns its registration number.
	// Returns domain.ErrAlreadyRegistered when the address is already registered.
	Register(ctx context.Context, registration domain.PropertyRegistration) (int64, error)

	// IsRegistered reports whether an address with the given UPRN has been registered.
	IsRegistered(ctx context.Context, uprn int64) (bool, error)
}

// AddressLookup searches for addresses by house name or number and postcode.
type AddressLookup interface {
	Search(ctx context.Context, houseNameOrNumber, postcode string) ([]domain.Address, error)
}

// LocalAuthorities lists the local authorities a manually entered address can belong to.
type LocalAuthorities interface {
	List(ctx context.Context) ([]domain.LocalAuthority, error)
}
