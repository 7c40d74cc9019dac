package domain

// Address is a postal address as returned by an address lookup or entered manually.
// Manually entered addresses carry no UPRN.
type Address struct {
	UPRN              *int64 `json:"uprn,omitempty" mapstructure:"uprn"`
	SingleLineAddress string `json:"singleLineAddress" mapstructure:"singleLineAddress"`
	BuildingName      string `json:"buildingName,omitempty" mapstructure:"buildingName"`
	BuildingNumber    string `json:"buildingNumber,omitempty" mapstructure:"buildingNumber"`
	StreetName        string `json:"streetName,omitempty" mapstructure:"streetName"`
	TownName          string `json:"townName,omitempty" mapstructure:"townName"`
	Postcode          string `json:"postcode" mapstructure:"postcode"`
	LocalAuthorityID  *int   `json:"localAuthorityId,omitempty" mapstructure:"localAuthorityId"`
}

// LocalAuthority identifies a council.
type LocalAuthority struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// PropertyRegistration is the assembled result of a completed property registration journey.
type PropertyRegistration struct {
	Address            Address `json:"address"`
	PropertyType       string  `json:"propertyType"`
	CustomPropertyType string  `json:"customPropertyType,omitempty"`
	OwnershipType      string  `json:"ownershipType"`
	LicensingType      string  `json:"licensingType"`
	LicenceNumber      string  `json:"licenceNumber,omitempty"`
	Occupied           bool    `json:"occupied"`
	NumberOfHouseholds int     `json:"numberOfHouseholds"`
	NumberOfPeople     int     `json:"numberOfPeople"`
}
