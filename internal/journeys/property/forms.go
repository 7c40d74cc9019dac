package property

import (
	"strings"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/form"
)

// PropertyType is the kind of building being registered.
type PropertyType string

const (
	DetachedHouse     PropertyType = "DETACHED_HOUSE"
	SemiDetachedHouse PropertyType = "SEMI_DETACHED_HOUSE"
	TerracedHouse     PropertyType = "TERRACED_HOUSE"
	Flat              PropertyType = "FLAT"
	OtherPropertyType PropertyType = "OTHER"
)

var propertyTypes = []PropertyType{DetachedHouse, SemiDetachedHouse, TerracedHouse, Flat, OtherPropertyType}

// OwnershipType is how the landlord holds the property.
type OwnershipType string

const (
	Freehold        OwnershipType = "FREEHOLD"
	Leasehold       OwnershipType = "LEASEHOLD"
	ShareOfFreehold OwnershipType = "SHARE_OF_FREEHOLD"
	Commonhold      OwnershipType = "COMMONHOLD"
)

var ownershipTypes = []OwnershipType{Freehold, Leasehold, ShareOfFreehold, Commonhold}

// LicensingType is the licence the property is held under.
type LicensingType string

const (
	SelectiveLicence     LicensingType = "SELECTIVE_LICENCE"
	HmoMandatoryLicence  LicensingType = "HMO_MANDATORY_LICENCE"
	HmoAdditionalLicence LicensingType = "HMO_ADDITIONAL_LICENCE"
	NoLicensing          LicensingType = "NO_LICENSING"
)

var licensingTypes = []LicensingType{SelectiveLicence, HmoMandatoryLicence, HmoAdditionalLicence, NoLicensing}

func oneOf[T comparable](v T, allowed []T) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// MaxLicenceNumberLength bounds free text licence numbers.
const MaxLicenceNumberLength = 255

type LookupAddressForm struct {
	HouseNameOrNumber string `mapstructure:"houseNameOrNumber"`
	Postcode          string `mapstructure:"postcode"`
}

func (f *LookupAddressForm) Validate(errs form.Errors) {
	if f.HouseNameOrNumber == "" {
		errs.Add("houseNameOrNumber", "forms.lookupAddress.houseNameOrNumber.error.missing")
	}
	if f.Postcode == "" {
		errs.Add("postcode", "forms.lookupAddress.postcode.error.missing")
	}
}

type SelectAddressForm struct {
	Address string `mapstructure:"address"`
}

func (f *SelectAddressForm) Validate(errs form.Errors) {
	if f.Address == "" {
		errs.Add("address", "forms.selectAddress.error.missing")
	}
}

type ManualAddressForm struct {
	AddressLineOne string `mapstructure:"addressLineOne"`
	AddressLineTwo string `mapstructure:"addressLineTwo"`
	TownOrCity     string `mapstructure:"townOrCity"`
	County         string `mapstructure:"county"`
	Postcode       string `mapstructure:"postcode"`
}

func (f *ManualAddressForm) Validate(errs form.Errors) {
	if f.AddressLineOne == "" {
		errs.Add("addressLineOne", "forms.manualAddress.addressLineOne.error.missing")
	}
	if f.TownOrCity == "" {
		errs.Add("townOrCity", "forms.manualAddress.townOrCity.error.missing")
	}
	if f.Postcode == "" {
		errs.Add("postcode", "forms.manualAddress.postcode.error.missing")
	}
}

// SingleLine joins the non-empty address parts.
func (f ManualAddressForm) SingleLine() string {
	var parts []string
	for _, p := range []string{f.AddressLineOne, f.AddressLineTwo, f.TownOrCity, f.County, f.Postcode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type LocalAuthorityForm struct {
	LocalAuthorityID int `mapstructure:"localAuthorityId"`
}

func (f *LocalAuthorityForm) Validate(errs form.Errors) {
	if f.LocalAuthorityID <= 0 {
		errs.Add("localAuthorityId", "forms.selectLocalAuthority.error.missing")
	}
}

type PropertyTypeForm struct {
	PropertyType       PropertyType `mapstructure:"propertyType"`
	CustomPropertyType string       `mapstructure:"customPropertyType"`
}

func (f *PropertyTypeForm) Validate(errs form.Errors) {
	if !oneOf(f.PropertyType, propertyTypes) {
		errs.Add("propertyType", "forms.propertyType.error.missing")
		return
	}
	if f.PropertyType == OtherPropertyType && f.CustomPropertyType == "" {
		errs.Add("customPropertyType", "forms.propertyType.customPropertyType.error.missing")
	}
}

type OwnershipTypeForm struct {
	OwnershipType OwnershipType `mapstructure:"ownershipType"`
}

func (f *OwnershipTypeForm) Validate(errs form.Errors) {
	if !oneOf(f.OwnershipType, ownershipTypes) {
		errs.Add("ownershipType", "forms.ownershipType.error.missing")
	}
}

type LicensingTypeForm struct {
	LicensingType LicensingType `mapstructure:"licensingType"`
}

func (f *LicensingTypeForm) Validate(errs form.Errors) {
	if !oneOf(f.LicensingType, licensingTypes) {
		errs.Add("licensingType", "forms.licensingType.error.missing")
	}
}

// LicenceNumberForm is shared by the selective, HMO mandatory and HMO additional licence steps.
type LicenceNumberForm struct {
	LicenceNumber string `mapstructure:"licenceNumber"`
}

func (f *LicenceNumberForm) Validate(errs form.Errors) {
	switch {
	case f.LicenceNumber == "":
		errs.Add("licenceNumber", "forms.licenceNumber.error.missing")
	case len(f.LicenceNumber) > MaxLicenceNumberLength:
		errs.Add("licenceNumber", "forms.licenceNumber.error.tooLong")
	}
}

type OccupancyForm struct {
	Occupied *bool `mapstructure:"occupied"`
}

func (f *OccupancyForm) Validate(errs form.Errors) {
	if f.Occupied == nil {
		errs.Add("occupied", "forms.occupancy.error.missing")
	}
}

type NumberOfHouseholdsForm struct {
	NumberOfHouseholds int `mapstructure:"numberOfHouseholds"`
}

func (f *NumberOfHouseholdsForm) Validate(errs form.Errors) {
	if f.NumberOfHouseholds <= 0 {
		errs.Add("numberOfHouseholds", "forms.numberOfHouseholds.error.invalidFormat")
	}
}

type NumberOfPeopleForm struct {
	NumberOfPeople int `mapstructure:"numberOfPeople"`
}

func (f *NumberOfPeopleForm) Validate(errs form.Errors) {
	if f.NumberOfPeople <= 0 {
		errs.Add("numberOfPeople", "forms.numberOfPeople.error.invalidFormat")
	}
}
