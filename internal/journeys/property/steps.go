package property

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/form"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
)

// RadioOption is one choice offered by a radios page.
type RadioOption struct {
	Value    string `json:"value"`
	LabelKey string `json:"labelMsgKey,omitempty"`
	Label    string `json:"label,omitempty"`
}

func radios[T ~string](prefix string, values []T) []RadioOption {
	out := make([]RadioOption, 0, len(values))
	for _, v := range values {
		out = append(out, RadioOption{Value: string(v), LabelKey: prefix + "." + string(v)})
	}
	return out
}

func (j *Journey) newSteps() {
	j.taskList = journey.NewPageStep("task-list", &journey.Page[journey.Complete, journey.NoInput]{
		TemplateName: "taskList",
		Static:       map[string]any{"title": "registerProperty.title", "heading": "registerProperty.taskList.heading"},
		Dynamic: func(ctx context.Context) (map[string]any, error) {
			sections, err := j.Sections(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"sections": sections}, nil
		},
	})

	j.lookupAddress = journey.NewPageStep("lookup-address", &journey.Page[lookupMode, LookupAddressForm]{
		TemplateName: "forms/lookupAddressForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.lookupAddress.fieldSetHeading",
			"fieldSetHint":    "forms.lookupAddress.fieldSetHint",
		},
		ModeOf: func(ctx context.Context, f LookupAddressForm) (lookupMode, error) {
			addresses, err := j.lookedUpAddresses(ctx, f)
			if err != nil {
				return 0, err
			}
			if len(addresses) == 0 {
				return noAddressesFound, nil
			}
			return addressesFound, nil
		},
	})

	j.noAddressFound = journey.NewPageStep("no-address-found", &journey.Page[journey.Complete, journey.NoInput]{
		TemplateName: "forms/noAddressFoundForm",
		Static:       map[string]any{"title": "registerProperty.title"},
		Dynamic: func(ctx context.Context) (map[string]any, error) {
			lookup, err := j.lookupAddress.RequireAnswer(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"houseNameOrNumber": lookup.HouseNameOrNumber,
				"postcode":          lookup.Postcode,
				"searchAgainUrl":    j.lookupAddress.URL(j.state.JourneyID()),
			}, nil
		},
	})

	j.selectAddress = journey.NewPageStep("select-address", &journey.Page[selectMode, SelectAddressForm]{
		TemplateName: "forms/selectAddressForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.selectAddress.fieldSetHeading",
		},
		Dynamic: func(ctx context.Context) (map[string]any, error) {
			addresses, err := j.currentAddresses(ctx)
			if err != nil {
				return nil, err
			}
			options := make([]RadioOption, 0, len(addresses)+1)
			for _, a := range addresses {
				options = append(options, RadioOption{Value: a.SingleLineAddress, Label: a.SingleLineAddress})
			}
			options = append(options, RadioOption{Value: ManualAddressChosen, LabelKey: "forms.selectAddress.addAddressManually"})
			return map[string]any{"radioOptions": options}, nil
		},
		Check: func(ctx context.Context, f SelectAddressForm, errs form.Errors) error {
			if f.Address == ManualAddressChosen {
				return nil
			}
			_, found, err := j.findAddress(ctx, f.Address)
			if err != nil {
				return err
			}
			if !found {
				errs.Add("address", "forms.selectAddress.error.invalid")
			}
			return nil
		},
		ModeOf: j.selectMode,
	})

	j.alreadyRegistered = journey.NewPageStep("already-registered", &journey.Page[journey.Complete, journey.NoInput]{
		TemplateName: "forms/propertyRegisteredForm",
		Static:       map[string]any{"title": "registerProperty.title"},
		Dynamic: func(ctx context.Context) (map[string]any, error) {
			selected, err := j.selectAddress.RequireAnswer(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"singleLineAddress": selected.Address}, nil
		},
	})

	j.manualAddress = journey.NewPageStep("manual-address", &journey.Page[journey.Complete, ManualAddressForm]{
		TemplateName: "forms/manualAddressForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.manualAddress.fieldSetHeading",
		},
	})

	j.localAuthority = journey.NewPageStep("local-authority", &journey.Page[journey.Complete, LocalAuthorityForm]{
		TemplateName: "forms/selectLocalAuthorityForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.selectLocalAuthority.fieldSetHeading",
		},
		Dynamic: func(ctx context.Context) (map[string]any, error) {
			authorities, err := j.deps.LocalAuthorities.List(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]any{"localAuthorities": authorities}, nil
		},
		Check: func(ctx context.Context, f LocalAuthorityForm, errs form.Errors) error {
			_, found, err := j.authority(ctx, f.LocalAuthorityID)
			if err != nil {
				return err
			}
			if !found {
				errs.Add("localAuthorityId", "forms.selectLocalAuthority.error.invalid")
			}
			return nil
		},
	})

	j.propertyType = journey.NewPageStep("property-type", &journey.Page[journey.Complete, PropertyTypeForm]{
		TemplateName: "forms/propertyTypeForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.propertyType.fieldSetHeading",
			"radioOptions":    radios("forms.propertyType.radios", propertyTypes),
		},
	})

	j.ownershipType = journey.NewPageStep("ownership-type", &journey.Page[journey.Complete, OwnershipTypeForm]{
		TemplateName: "forms/ownershipTypeForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.ownershipType.fieldSetHeading",
			"radioOptions":    radios("forms.ownershipType.radios", ownershipTypes),
		},
	})

	j.licensingType = journey.NewPageStep("licensing-type", &journey.Page[LicensingType, LicensingTypeForm]{
		TemplateName: "forms/licensingTypeForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.licensingType.fieldSetHeading",
			"radioOptions":    radios("forms.licensingType.radios", licensingTypes),
		},
		ModeOf: func(_ context.Context, f LicensingTypeForm) (LicensingType, error) {
			return f.LicensingType, nil
		},
	})

	licence := func(name, heading string) *journey.Step[journey.Complete, LicenceNumberForm] {
		return journey.NewPageStep(name, &journey.Page[journey.Complete, LicenceNumberForm]{
			TemplateName: "forms/licenceNumberForm",
			Static: map[string]any{
				"title":           "registerProperty.title",
				"fieldSetHeading": heading,
			},
		})
	}
	j.selectiveLicence = licence("selective-licence", "forms.selectiveLicence.fieldSetHeading")
	j.hmoMandatoryLicence = licence("hmo-mandatory-licence", "forms.hmoMandatoryLicence.fieldSetHeading")
	j.hmoAdditionalLicence = licence("hmo-additional-licence", "forms.hmoAdditionalLicence.fieldSetHeading")

	j.occupancy = journey.NewPageStep("occupancy", &journey.Page[occupancyMode, OccupancyForm]{
		TemplateName: "forms/propertyOccupancyForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.occupancy.fieldSetHeading",
		},
		ModeOf: func(_ context.Context, f OccupancyForm) (occupancyMode, error) {
			if f.Occupied != nil && *f.Occupied {
				return occupied, nil
			}
			return vacant, nil
		},
	})

	j.households = journey.NewPageStep("number-of-households", &journey.Page[journey.Complete, NumberOfHouseholdsForm]{
		TemplateName: "forms/numberOfHouseholdsForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.numberOfHouseholds.fieldSetHeading",
		},
	})

	j.people = journey.NewPageStep("number-of-people", &journey.Page[journey.Complete, NumberOfPeopleForm]{
		TemplateName: "forms/numberOfPeopleForm",
		Static: map[string]any{
			"title":           "registerProperty.title",
			"fieldSetHeading": "forms.numberOfPeople.fieldSetHeading",
		},
		Check: func(ctx context.Context, f NumberOfPeopleForm, errs form.Errors) error {
			households, err := j.households.RequireAnswer(ctx)
			if err != nil {
				return err
			}
			if f.NumberOfPeople < households.NumberOfHouseholds {
				errs.Add("numberOfPeople", "forms.numberOfPeople.error.invalidNumberOfPeople")
			}
			return nil
		},
	})

	j.checkAnswers = journey.NewPageStep("check-answers", &journey.Page[journey.Complete, journey.NoInput]{
		TemplateName: "forms/propertyRegistrationCheckAnswersForm",
		Static: map[string]any{
			"title":            "registerProperty.title",
			"summaryName":      "forms.checkPropertyAnswers.summaryName",
			"submitButtonText": "forms.buttons.completeRegistration",
		},
		Dynamic: j.summaryContent,
		Before:  j.startChangeAnswerSubJourney,
	})
}
