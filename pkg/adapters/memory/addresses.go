package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

// AddressBook is an in-memory address lookup and local authority list.
type AddressBook struct {
	mu          sync.RWMutex
	addresses   []domain.Address
	authorities []domain.LocalAuthority
}

var (
	_ ports.AddressLookup    = (*AddressBook)(nil)
	_ ports.LocalAuthorities = (*AddressBook)(nil)
)

// NewAddressBook creates an address book seeded with addresses and authorities.
func NewAddressBook(addresses []domain.Address, authorities []domain.LocalAuthority) *AddressBook {
	return &AddressBook{
		addresses:   append([]domain.Address(nil), addresses...),
		authorities: append([]domain.LocalAuthority(nil), authorities...),
	}
}

// Add registers another address.
func (b *AddressBook) Add(address domain.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addresses = append(b.addresses, address)
}

// Search returns the addresses in postcode whose building name or number starts with houseNameOrNumber.
// Postcodes compare case-insensitively, ignoring spaces.
func (b *AddressBook) Search(ctx context.Context, houseNameOrNumber, postcode string) ([]domain.Address, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	wantPostcode := normalisePostcode(postcode)
	house := strings.ToLower(strings.TrimSpace(houseNameOrNumber))

	var out []domain.Address
	for _, a := range b.addresses {
		if normalisePostcode(a.Postcode) != wantPostcode {
			continue
		}
		if house != "" &&
			!strings.HasPrefix(strings.ToLower(a.BuildingNumber), house) &&
			!strings.HasPrefix(strings.ToLower(a.BuildingName), house) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// List returns the local authorities.
func (b *AddressBook) List(ctx context.Context) ([]domain.LocalAuthority, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.LocalAuthority(nil), b.authorities...), nil
}

func normalisePostcode(p string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(p), " ", ""))
}
