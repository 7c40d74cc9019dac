package property

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/form"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
)

// lookedUpAddressesKey holds the result of the last address search in the answer bag.
const lookedUpAddressesKey = "lookedUpAddresses"

type addressCache struct {
	HouseNameOrNumber string           `json:"houseNameOrNumber" mapstructure:"houseNameOrNumber"`
	Postcode          string           `json:"postcode" mapstructure:"postcode"`
	Addresses         []domain.Address `json:"addresses" mapstructure:"addresses"`
}

func (c addressCache) matches(f LookupAddressForm) bool {
	return strings.EqualFold(c.HouseNameOrNumber, f.HouseNameOrNumber) && strings.EqualFold(c.Postcode, f.Postcode)
}

func (j *Journey) submitLookup(ctx context.Context, f LookupAddressForm) (domain.Destination, error) {
	addresses, err := j.deps.Addresses.Search(ctx, f.HouseNameOrNumber, f.Postcode)
	if err != nil {
		return domain.Destination{}, fmt.Errorf("address search: %w", err)
	}
	if err := j.cacheAddresses(ctx, f, addresses); err != nil {
		return domain.Destination{}, err
	}
	if len(addresses) == 0 {
		return journey.GoTo(ctx, j.noAddressFound)
	}
	return journey.GoTo(ctx, j.selectAddress)
}

// cacheAddresses stores the search result in its JSON shape so that every store returns it the same way.
func (j *Journey) cacheAddresses(ctx context.Context, f LookupAddressForm, addresses []domain.Address) error {
	raw, err := json.Marshal(addressCache{HouseNameOrNumber: f.HouseNameOrNumber, Postcode: f.Postcode, Addresses: addresses})
	if err != nil {
		return fmt.Errorf("encode looked up addresses: %w", err)
	}
	var value map[string]any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("encode looked up addresses: %w", err)
	}
	return j.state.SetValue(ctx, lookedUpAddressesKey, value)
}

// lookedUpAddresses returns the addresses found for a lookup answer. The
// cached search is used when it was made for the same answer; otherwise the
// lookup is repeated without being cached.
func (j *Journey) lookedUpAddresses(ctx context.Context, f LookupAddressForm) ([]domain.Address, error) {
	raw, ok, err := j.state.GetValue(ctx, lookedUpAddressesKey)
	if err != nil {
		return nil, err
	}
	if ok {
		if data, isMap := domain.AsPageData(raw); isMap {
			cache, err := form.Decode[addressCache](data)
			if err != nil {
				return nil, fmt.Errorf("decode looked up addresses: %w", err)
			}
			if cache.matches(f) {
				return cache.Addresses, nil
			}
		}
	}
	return j.deps.Addresses.Search(ctx, f.HouseNameOrNumber, f.Postcode)
}

func (j *Journey) currentAddresses(ctx context.Context) ([]domain.Address, error) {
	lookup, err := j.lookupAddress.RequireAnswer(ctx)
	if err != nil {
		return nil, err
	}
	return j.lookedUpAddresses(ctx, lookup)
}

func (j *Journey) findAddress(ctx context.Context, singleLine string) (domain.Address, bool, error) {
	addresses, err := j.currentAddresses(ctx)
	if err != nil {
		return domain.Address{}, false, err
	}
	for _, a := range addresses {
		if a.SingleLineAddress == singleLine {
			return a, true, nil
		}
	}
	return domain.Address{}, false, nil
}

func (j *Journey) selectMode(ctx context.Context, f SelectAddressForm) (selectMode, error) {
	if f.Address == ManualAddressChosen {
		return manualAddressSelected, nil
	}
	address, found, err := j.findAddress(ctx, f.Address)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, &domain.MissingStateError{Step: j.selectAddress.Name(), Need: "an address from the last search"}
	}
	if address.UPRN != nil {
		registered, err := j.deps.Registrar.IsRegistered(ctx, *address.UPRN)
		if err != nil {
			return 0, fmt.Errorf("check registration: %w", err)
		}
		if registered {
			return addressAlreadyRegistered, nil
		}
	}
	return addressSelected, nil
}

func (j *Journey) authority(ctx context.Context, id int) (domain.LocalAuthority, bool, error) {
	authorities, err := j.deps.LocalAuthorities.List(ctx)
	if err != nil {
		return domain.LocalAuthority{}, false, err
	}
	for _, la := range authorities {
		if la.ID == id {
			return la, true, nil
		}
	}
	return domain.LocalAuthority{}, false, nil
}

// address resolves the address the journey will register: the selected
// search result, or the manual address with its local authority.
func (j *Journey) address(ctx context.Context) (domain.Address, error) {
	mode, ok, err := j.selectedOutcome(ctx)
	if err != nil {
		return domain.Address{}, err
	}
	if ok && mode == addressSelected {
		selected, err := j.selectAddress.RequireAnswer(ctx)
		if err != nil {
			return domain.Address{}, err
		}
		address, found, err := j.findAddress(ctx, selected.Address)
		if err != nil {
			return domain.Address{}, err
		}
		if !found {
			return domain.Address{}, &domain.MissingStateError{Step: j.selectAddress.Name(), Need: "an address from the last search"}
		}
		return address, nil
	}

	manual, err := j.manualAddress.RequireAnswer(ctx)
	if err != nil {
		return domain.Address{}, err
	}
	la, err := j.localAuthority.RequireAnswer(ctx)
	if err != nil {
		return domain.Address{}, err
	}
	id := la.LocalAuthorityID
	return domain.Address{
		SingleLineAddress: manual.SingleLine(),
		BuildingName:      manual.AddressLineOne,
		StreetName:        manual.AddressLineTwo,
		TownName:          manual.TownOrCity,
		Postcode:          manual.Postcode,
		LocalAuthorityID:  &id,
	}, nil
}

func (j *Journey) selectedOutcome(ctx context.Context) (selectMode, bool, error) {
	reachable, err := j.selectAddress.Reachable(ctx)
	if err != nil || !reachable {
		return 0, false, err
	}
	return j.selectAddress.Outcome(ctx)
}
