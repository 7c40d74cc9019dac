package property_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/journeys/property"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/memory"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
)

const (
	sessionID = "session-1"
	journeyID = "abc"
	changeID  = "1abc"
)

func uprn(v int64) *int64 { return &v }

var (
	firstAddress = domain.Address{
		UPRN:              uprn(1001),
		SingleLineAddress: "1 Example Road, Exampleton, EG1 2AB",
		BuildingNumber:    "1",
		StreetName:        "Example Road",
		TownName:          "Exampleton",
		Postcode:          "EG1 2AB",
	}
	secondAddress = domain.Address{
		UPRN:              uprn(1002),
		SingleLineAddress: "2 Example Road, Exampleton, EG1 2AB",
		BuildingNumber:    "2",
		StreetName:        "Example Road",
		TownName:          "Exampleton",
		Postcode:          "EG1 2AB",
	}
	authorities = []domain.LocalAuthority{{ID: 1, Name: "Exampleton Council"}, {ID: 2, Name: "Otherton Council"}}
)

type fakeRegistrar struct {
	mu            sync.Mutex
	registered    map[int64]bool
	registrations []domain.PropertyRegistration
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{registered: map[int64]bool{}}
}

func (f *fakeRegistrar) Register(_ context.Context, reg domain.PropertyRegistration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reg.Address.UPRN != nil {
		if f.registered[*reg.Address.UPRN] {
			return 0, domain.ErrAlreadyRegistered
		}
		f.registered[*reg.Address.UPRN] = true
	}
	f.registrations = append(f.registrations, reg)
	return int64(len(f.registrations)), nil
}

func (f *fakeRegistrar) IsRegistered(_ context.Context, uprn int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered[uprn], nil
}

func (f *fakeRegistrar) markRegistered(uprn int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[uprn] = true
}

// harness builds a fresh journey for every request, as the HTTP host does.
type harness struct {
	t         *testing.T
	store     *memory.Store
	registrar *fakeRegistrar
	deps      property.Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	book := memory.NewAddressBook([]domain.Address{firstAddress, secondAddress}, authorities)
	h := &harness{t: t, store: memory.NewStore(), registrar: newFakeRegistrar()}
	h.deps = property.Deps{Registrar: h.registrar, Addresses: book, LocalAuthorities: book}
	require.NoError(t, h.state("").InitializeJourneyWithID(context.Background(), journeyID, nil))
	return h
}

func (h *harness) state(id string) *journey.StateService {
	return journey.NewStateService(h.store.Session(sessionID), id)
}

func (h *harness) journey(id string) *property.Journey {
	h.t.Helper()
	j, err := property.New(h.state(id), h.deps)
	require.NoError(h.t, err)
	return j
}

func (h *harness) orchestrator(id, segment string) *journey.Orchestrator {
	h.t.Helper()
	o, ok := h.journey(id).Graph().Orchestrator(segment)
	require.True(h.t, ok, "segment %s not in graph", segment)
	return o
}

func (h *harness) get(id, segment string) *journey.Result {
	h.t.Helper()
	res, err := h.orchestrator(id, segment).Get(context.Background())
	require.NoError(h.t, err)
	return res
}

func (h *harness) post(id, segment string, data domain.PageData) *journey.Result {
	h.t.Helper()
	res, err := h.orchestrator(id, segment).Post(context.Background(), data)
	require.NoError(h.t, err)
	return res
}

// submit posts data and asserts the redirect location.
func (h *harness) submit(segment string, data domain.PageData, want string) {
	h.t.Helper()
	res := h.post(journeyID, segment, data)
	require.Equal(h.t, journey.SubmittedValid, res.State, "errors: %v", viewErrors(res))
	assert.Equal(h.t, want, res.Redirect.Location(journeyID))
}

func viewErrors(res *journey.Result) map[string][]string {
	if res.View == nil {
		return nil
	}
	return res.View.Errors
}

func at(segment string) string {
	return journey.URLWithJourneyState(segment, journeyID)
}

// answerEverything walks the selected address path up to check-answers.
func (h *harness) answerEverything() {
	h.t.Helper()
	h.submit(property.LookupAddressSegment, domain.PageData{"houseNameOrNumber": "1", "postcode": "eg1 2ab"}, at(property.SelectAddressSegment))
	h.submit(property.SelectAddressSegment, domain.PageData{"address": firstAddress.SingleLineAddress}, at(property.PropertyTypeSegment))
	h.submit(property.PropertyTypeSegment, domain.PageData{"propertyType": "FLAT"}, at(property.OwnershipTypeSegment))
	h.submit(property.OwnershipTypeSegment, domain.PageData{"ownershipType": "FREEHOLD"}, at(property.LicensingTypeSegment))
	h.submit(property.LicensingTypeSegment, domain.PageData{"licensingType": "SELECTIVE_LICENCE"}, at(property.SelectiveLicenceSegment))
	h.submit(property.SelectiveLicenceSegment, domain.PageData{"licenceNumber": "L-123"}, at(property.OccupancySegment))
	h.submit(property.OccupancySegment, domain.PageData{"occupied": "true"}, at(property.NumberOfHouseholdsSegment))
	h.submit(property.NumberOfHouseholdsSegment, domain.PageData{"numberOfHouseholds": "2"}, at(property.NumberOfPeopleSegment))
	h.submit(property.NumberOfPeopleSegment, domain.PageData{"numberOfPeople": "3"}, at(property.CheckAnswersSegment))
}

func (h *harness) sections() []journey.SectionSummary {
	h.t.Helper()
	sections, err := h.journey(journeyID).Sections(context.Background())
	require.NoError(h.t, err)
	return sections
}

func statuses(sections []journey.SectionSummary) map[string]journey.TaskStatus {
	out := map[string]journey.TaskStatus{}
	for _, s := range sections {
		for _, task := range s.Tasks {
			out[task.Name] = task.Status
		}
	}
	return out
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := property.New(journey.NewStateService(memory.NewStore().Session(sessionID), journeyID), property.Deps{})
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestGraph_Segments(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, []string{
		property.TaskListSegment,
		property.LookupAddressSegment,
		property.NoAddressFoundSegment,
		property.SelectAddressSegment,
		property.AlreadyRegisteredSegment,
		property.ManualAddressSegment,
		property.LocalAuthoritySegment,
		property.PropertyTypeSegment,
		property.OwnershipTypeSegment,
		property.LicensingTypeSegment,
		property.SelectiveLicenceSegment,
		property.HmoMandatoryLicenceSegment,
		property.HmoAdditionalLicenceSegment,
		property.OccupancySegment,
		property.NumberOfHouseholdsSegment,
		property.NumberOfPeopleSegment,
		property.CheckAnswersSegment,
	}, h.journey(journeyID).Graph().Segments())
}

func TestTaskList_InitialState(t *testing.T) {
	h := newHarness(t)

	res := h.get(journeyID, property.TaskListSegment)
	require.Equal(t, journey.Rendered, res.State)

	sections, ok := res.View.Content["sections"].([]journey.SectionSummary)
	require.True(t, ok)
	require.Len(t, sections, 2)
	require.Len(t, sections[0].Tasks, 5)

	address := sections[0].Tasks[0]
	assert.Equal(t, "address", address.Name)
	assert.Equal(t, journey.NotStarted, address.Status)
	assert.True(t, address.Startable)
	assert.Equal(t, at(property.LookupAddressSegment), address.URL)

	for _, task := range sections[0].Tasks[1:] {
		assert.False(t, task.Startable, task.Name)
		assert.Empty(t, task.URL, task.Name)
	}
	assert.False(t, sections[1].Tasks[0].Startable)
}

func TestUnreachableStepsRedirectToTaskList(t *testing.T) {
	h := newHarness(t)

	for _, segment := range []string{property.SelectAddressSegment, property.PropertyTypeSegment, property.CheckAnswersSegment} {
		res := h.get(journeyID, segment)
		assert.Equal(t, journey.Unvisited, res.State, segment)
		assert.Equal(t, at(property.TaskListSegment), res.Redirect.Location(journeyID), segment)
	}
}

func TestHappyPath(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	want := map[string]journey.TaskStatus{
		"address":          journey.TaskComplete,
		"property-type":    journey.TaskComplete,
		"ownership-type":   journey.TaskComplete,
		"licensing":        journey.TaskComplete,
		"occupancy":        journey.TaskComplete,
		"check-and-submit": journey.NotStarted,
	}
	assert.Equal(t, want, statuses(h.sections()))

	res := h.get(journeyID, property.CheckAnswersSegment)
	require.Equal(t, journey.Rendered, res.State)
	rows, ok := res.View.Content["summaryList"].([]property.SummaryRow)
	require.True(t, ok)
	require.NotEmpty(t, rows)
	assert.Equal(t, firstAddress.SingleLineAddress, rows[0].Value)
	assert.Equal(t, journey.URLWithJourneyState(property.LookupAddressSegment, changeID), rows[0].ChangeURL)
	assert.Equal(t, at(property.TaskListSegment), res.View.BackURL)

	res = h.post(journeyID, property.CheckAnswersSegment, domain.PageData{})
	require.Equal(t, journey.SubmittedValid, res.State)
	assert.Equal(t, property.ConfirmationURL(1), res.Redirect.Location(journeyID))

	require.Len(t, h.registrar.registrations, 1)
	assert.Equal(t, domain.PropertyRegistration{
		Address:            firstAddress,
		PropertyType:       "FLAT",
		OwnershipType:      "FREEHOLD",
		LicensingType:      "SELECTIVE_LICENCE",
		LicenceNumber:      "L-123",
		Occupied:           true,
		NumberOfHouseholds: 2,
		NumberOfPeople:     3,
	}, h.registrar.registrations[0])

	for _, id := range []string{journeyID, changeID} {
		_, err := h.state(id).Metadata(context.Background())
		assert.True(t, errors.Is(err, domain.ErrJourneyNotFound), id)
	}
}

func TestNumberOfPeopleMustCoverHouseholds(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	res := h.post(journeyID, property.NumberOfPeopleSegment, domain.PageData{"numberOfPeople": "1"})
	require.Equal(t, journey.SubmittedInvalid, res.State)
	assert.Equal(t, []string{"forms.numberOfPeople.error.invalidNumberOfPeople"}, res.View.Errors["numberOfPeople"])

	j := h.journey(journeyID)
	reg, err := j.Registration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, reg.NumberOfPeople)
}

func TestVacantPropertySkipsHouseholds(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	h.submit(property.OccupancySegment, domain.PageData{"occupied": "false"}, at(property.CheckAnswersSegment))

	reg, err := h.journey(journeyID).Registration(context.Background())
	require.NoError(t, err)
	assert.False(t, reg.Occupied)
	assert.Zero(t, reg.NumberOfHouseholds)
	assert.Zero(t, reg.NumberOfPeople)

	res := h.get(journeyID, property.NumberOfHouseholdsSegment)
	assert.Equal(t, journey.Unvisited, res.State)
}

func TestNoLicensing(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	h.submit(property.LicensingTypeSegment, domain.PageData{"licensingType": "NO_LICENSING"}, at(property.OccupancySegment))

	reg, err := h.journey(journeyID).Registration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "NO_LICENSING", reg.LicensingType)
	assert.Empty(t, reg.LicenceNumber)
}

func TestNoAddressFoundLeadsToManualAddress(t *testing.T) {
	h := newHarness(t)

	h.submit(property.LookupAddressSegment, domain.PageData{"houseNameOrNumber": "99", "postcode": "EG1 2AB"}, at(property.NoAddressFoundSegment))

	res := h.get(journeyID, property.SelectAddressSegment)
	assert.Equal(t, journey.Unvisited, res.State)

	res = h.get(journeyID, property.NoAddressFoundSegment)
	require.Equal(t, journey.Rendered, res.State)
	assert.Equal(t, "99", res.View.Content["houseNameOrNumber"])

	h.submit(property.NoAddressFoundSegment, domain.PageData{}, at(property.ManualAddressSegment))
	h.submit(property.ManualAddressSegment, domain.PageData{
		"addressLineOne": "Flat 3",
		"addressLineTwo": "The Mews",
		"townOrCity":     "Otherton",
		"postcode":       "OT1 1AA",
	}, at(property.LocalAuthoritySegment))

	res = h.post(journeyID, property.LocalAuthoritySegment, domain.PageData{"localAuthorityId": "99"})
	require.Equal(t, journey.SubmittedInvalid, res.State)
	assert.Equal(t, []string{"forms.selectLocalAuthority.error.invalid"}, res.View.Errors["localAuthorityId"])

	h.submit(property.LocalAuthoritySegment, domain.PageData{"localAuthorityId": "2"}, at(property.PropertyTypeSegment))
	assert.Equal(t, journey.TaskComplete, statuses(h.sections())["address"])
}

func TestManualAddressChosenFromResults(t *testing.T) {
	h := newHarness(t)

	h.submit(property.LookupAddressSegment, domain.PageData{"houseNameOrNumber": "1", "postcode": "EG1 2AB"}, at(property.SelectAddressSegment))

	res := h.get(journeyID, property.SelectAddressSegment)
	require.Equal(t, journey.Rendered, res.State)
	options, ok := res.View.Content["radioOptions"].([]property.RadioOption)
	require.True(t, ok)
	require.Len(t, options, 2)
	assert.Equal(t, firstAddress.SingleLineAddress, options[0].Value)
	assert.Equal(t, property.ManualAddressChosen, options[1].Value)

	h.submit(property.SelectAddressSegment, domain.PageData{"address": property.ManualAddressChosen}, at(property.ManualAddressSegment))
	assert.Equal(t, journey.InProgress, statuses(h.sections())["address"])
}

func TestSelectAddress_RejectsUnknownAddress(t *testing.T) {
	h := newHarness(t)
	h.submit(property.LookupAddressSegment, domain.PageData{"houseNameOrNumber": "1", "postcode": "EG1 2AB"}, at(property.SelectAddressSegment))

	res := h.post(journeyID, property.SelectAddressSegment, domain.PageData{"address": secondAddress.SingleLineAddress})
	require.Equal(t, journey.SubmittedInvalid, res.State)
	assert.Equal(t, []string{"forms.selectAddress.error.invalid"}, res.View.Errors["address"])
}

func TestRegisteredAddressIsRefused(t *testing.T) {
	h := newHarness(t)
	h.registrar.markRegistered(*firstAddress.UPRN)

	h.submit(property.LookupAddressSegment, domain.PageData{"houseNameOrNumber": "1", "postcode": "EG1 2AB"}, at(property.SelectAddressSegment))
	h.submit(property.SelectAddressSegment, domain.PageData{"address": firstAddress.SingleLineAddress}, at(property.AlreadyRegisteredSegment))

	res := h.get(journeyID, property.AlreadyRegisteredSegment)
	require.Equal(t, journey.Rendered, res.State)
	assert.Equal(t, firstAddress.SingleLineAddress, res.View.Content["singleLineAddress"])

	h.submit(property.AlreadyRegisteredSegment, domain.PageData{}, at(property.LookupAddressSegment))
	assert.Equal(t, journey.InProgress, statuses(h.sections())["address"])
}

func TestSubmissionConflict(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	// Someone else registers the address while the landlord is checking their answers.
	h.registrar.markRegistered(*firstAddress.UPRN)

	res := h.post(journeyID, property.CheckAnswersSegment, domain.PageData{})
	require.Equal(t, journey.SubmittedValid, res.State)
	assert.Equal(t, at(property.AlreadyRegisteredSegment), res.Redirect.Location(journeyID))
	assert.Empty(t, h.registrar.registrations)

	_, err := h.state(journeyID).Metadata(context.Background())
	assert.NoError(t, err)
}

func TestChangeAnswerReturnsToCheckAnswers(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	// Rendering check-answers creates the CHANGE_ANSWER sub-journey.
	require.Equal(t, journey.Rendered, h.get(journeyID, property.CheckAnswersSegment).State)

	res := h.get(changeID, property.PropertyTypeSegment)
	require.Equal(t, journey.Rendered, res.State)
	assert.Equal(t, "FLAT", res.View.Form["propertyType"])

	res = h.post(changeID, property.PropertyTypeSegment, domain.PageData{"propertyType": "OTHER", "customPropertyType": "Houseboat"})
	require.Equal(t, journey.SubmittedValid, res.State)
	assert.Equal(t, journey.URLWithJourneyState(property.CheckAnswersSegment, changeID), res.Redirect.Location(changeID))

	reg, err := h.journey(journeyID).Registration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "OTHER", reg.PropertyType)
	assert.Equal(t, "Houseboat", reg.CustomPropertyType)

	res = h.post(changeID, property.CheckAnswersSegment, domain.PageData{})
	require.Equal(t, journey.SubmittedValid, res.State)
	assert.Equal(t, property.ConfirmationURL(1), res.Redirect.Location(changeID))

	for _, id := range []string{journeyID, changeID} {
		_, err := h.state(id).Metadata(context.Background())
		assert.True(t, errors.Is(err, domain.ErrJourneyNotFound), id)
	}
}

func TestPropertyType_OtherNeedsDescription(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	res := h.post(journeyID, property.PropertyTypeSegment, domain.PageData{"propertyType": "OTHER"})
	require.Equal(t, journey.SubmittedInvalid, res.State)
	assert.Contains(t, res.View.Errors, "customPropertyType")
}
