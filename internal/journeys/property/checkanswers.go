package property

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
)

// SummaryRow is one answer on the check-answers page.
type SummaryRow struct {
	FieldHeading string `json:"fieldHeading"`
	Value        any    `json:"value"`
	ChangeURL    string `json:"changeUrl,omitempty"`
}

// ChangeJourneyID derives the CHANGE_ANSWER sub-journey identifier of a base journey.
func ChangeJourneyID(baseJourneyID string) string {
	return "1" + baseJourneyID
}

// baseJourneyID returns the journey the current identifier belongs to.
func (j *Journey) baseJourneyID(ctx context.Context) (string, error) {
	md, err := j.state.Metadata(ctx)
	if err != nil {
		return "", err
	}
	if md.BaseJourneyID != "" {
		return md.BaseJourneyID, nil
	}
	return j.state.JourneyID(), nil
}

// startChangeAnswerSubJourney makes sure the change links of check-answers resolve.
func (j *Journey) startChangeAnswerSubJourney(ctx context.Context) error {
	name, err := j.state.SubJourneyName(ctx)
	if err != nil || name == ChangeAnswerSubJourney {
		return err
	}
	return j.state.InitializeSubJourney(ctx, ChangeJourneyID(j.state.JourneyID()), ChangeAnswerSubJourney)
}

func (j *Journey) summaryContent(ctx context.Context) (map[string]any, error) {
	base, err := j.baseJourneyID(ctx)
	if err != nil {
		return nil, err
	}
	changeID := ChangeJourneyID(base)

	reg, err := j.Registration(ctx)
	if err != nil {
		return nil, err
	}

	rows := []SummaryRow{
		{"forms.checkPropertyAnswers.propertyDetails.address", reg.Address.SingleLineAddress, j.lookupAddress.URL(changeID)},
	}
	if reg.Address.UPRN == nil && reg.Address.LocalAuthorityID != nil {
		la, _, err := j.authority(ctx, *reg.Address.LocalAuthorityID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, SummaryRow{"forms.checkPropertyAnswers.propertyDetails.localAuthority", la.Name, j.localAuthority.URL(changeID)})
	}

	propertyType := reg.PropertyType
	if reg.CustomPropertyType != "" {
		propertyType = reg.CustomPropertyType
	}
	rows = append(rows,
		SummaryRow{"forms.checkPropertyAnswers.propertyDetails.type", propertyType, j.propertyType.URL(changeID)},
		SummaryRow{"forms.checkPropertyAnswers.propertyDetails.ownership", reg.OwnershipType, j.ownershipType.URL(changeID)},
		SummaryRow{"forms.checkPropertyAnswers.propertyDetails.licensing", reg.LicensingType, j.licensingType.URL(changeID)},
	)
	if reg.LicenceNumber != "" {
		rows = append(rows, SummaryRow{"forms.checkPropertyAnswers.propertyDetails.licenceNumber", reg.LicenceNumber, j.licensingType.URL(changeID)})
	}
	rows = append(rows, SummaryRow{"forms.checkPropertyAnswers.propertyDetails.occupied", reg.Occupied, j.occupancy.URL(changeID)})
	if reg.Occupied {
		rows = append(rows,
			SummaryRow{"forms.checkPropertyAnswers.propertyDetails.households", reg.NumberOfHouseholds, j.households.URL(changeID)},
			SummaryRow{"forms.checkPropertyAnswers.propertyDetails.people", reg.NumberOfPeople, j.people.URL(changeID)},
		)
	}
	return map[string]any{"summaryList": rows}, nil
}

// Registration assembles the registration from the answers on the current path.
func (j *Journey) Registration(ctx context.Context) (domain.PropertyRegistration, error) {
	var reg domain.PropertyRegistration

	address, err := j.address(ctx)
	if err != nil {
		return reg, err
	}
	reg.Address = address

	pt, err := j.propertyType.RequireAnswer(ctx)
	if err != nil {
		return reg, err
	}
	reg.PropertyType = string(pt.PropertyType)
	if pt.PropertyType == OtherPropertyType {
		reg.CustomPropertyType = pt.CustomPropertyType
	}

	ot, err := j.ownershipType.RequireAnswer(ctx)
	if err != nil {
		return reg, err
	}
	reg.OwnershipType = string(ot.OwnershipType)

	lt, err := j.licensingType.RequireAnswer(ctx)
	if err != nil {
		return reg, err
	}
	reg.LicensingType = string(lt.LicensingType)
	if licence := j.licenceStep(lt.LicensingType); licence != nil {
		number, err := licence.RequireAnswer(ctx)
		if err != nil {
			return reg, err
		}
		reg.LicenceNumber = number.LicenceNumber
	}

	occ, err := j.occupancy.RequireAnswer(ctx)
	if err != nil {
		return reg, err
	}
	reg.Occupied = *occ.Occupied
	if reg.Occupied {
		households, err := j.households.RequireAnswer(ctx)
		if err != nil {
			return reg, err
		}
		people, err := j.people.RequireAnswer(ctx)
		if err != nil {
			return reg, err
		}
		reg.NumberOfHouseholds = households.NumberOfHouseholds
		reg.NumberOfPeople = people.NumberOfPeople
	}
	return reg, nil
}

func (j *Journey) licenceStep(t LicensingType) *journey.Step[journey.Complete, LicenceNumberForm] {
	switch t {
	case SelectiveLicence:
		return j.selectiveLicence
	case HmoMandatoryLicence:
		return j.hmoMandatoryLicence
	case HmoAdditionalLicence:
		return j.hmoAdditionalLicence
	default:
		return nil
	}
}

// submit registers the property. An address registered by someone else in
// the meantime sends the landlord to the already-registered page.
func (j *Journey) submit(ctx context.Context, _ journey.NoInput) (domain.Destination, error) {
	reg, err := j.Registration(ctx)
	if err != nil {
		return domain.Destination{}, err
	}

	number, err := j.deps.Registrar.Register(ctx, reg)
	if errors.Is(err, domain.ErrAlreadyRegistered) {
		return journey.GoTo(ctx, j.alreadyRegistered)
	}
	if err != nil {
		return domain.Destination{}, fmt.Errorf("register property: %w", err)
	}

	if err := j.deleteJourneyData(ctx); err != nil {
		return domain.Destination{}, err
	}
	return domain.URLDestination(ConfirmationURL(number)), nil
}

// deleteJourneyData removes the base journey and its CHANGE_ANSWER sub-journey.
func (j *Journey) deleteJourneyData(ctx context.Context) error {
	base, err := j.baseJourneyID(ctx)
	if err != nil {
		return err
	}
	for _, id := range []string{ChangeJourneyID(base), base} {
		err := j.state.ForJourney(id).DeleteState(ctx)
		if err != nil && !errors.Is(err, domain.ErrJourneyNotFound) {
			return err
		}
	}
	return nil
}

// ConfirmationURL is where a successful registration is confirmed.
func ConfirmationURL(registrationNumber int64) string {
	return ConfirmationPath + "?registrationNumber=" + strconv.FormatInt(registrationNumber, 10)
}

// ConfirmationView renders the confirmation page of a registration.
func ConfirmationView(registrationNumber int64) *domain.View {
	return &domain.View{
		Segment:  "confirmation",
		Template: "registrationConfirmationPage",
		Content: map[string]any{
			"title":              "registerProperty.title",
			"registrationNumber": registrationNumber,
			"dashboardUrl":       LandlordDashboardURL,
		},
	}
}
