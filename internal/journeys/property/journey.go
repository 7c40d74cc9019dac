package property

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

const (
	// Name is the route segment the journey is served under.
	Name = "property-registration"

	RoutePrefix      = "/journeys/" + Name
	ConfirmationPath = RoutePrefix + "/confirmation"

	// LandlordDashboardURL is where a landlord goes after registering.
	LandlordDashboardURL = "/landlord/dashboard"

	// ChangeAnswerSubJourney names the sub-journey used to change answers from check-answers.
	ChangeAnswerSubJourney = "CHANGE_ANSWER"

	// ManualAddressChosen is the select-address value for "enter the address manually".
	ManualAddressChosen = "MANUAL_ADDRESS"
)

// Route segments.
const (
	TaskListSegment             = "task-list"
	LookupAddressSegment        = "lookup-address"
	NoAddressFoundSegment       = "no-address-found"
	SelectAddressSegment        = "select-address"
	AlreadyRegisteredSegment    = "already-registered"
	ManualAddressSegment        = "manual-address"
	LocalAuthoritySegment       = "local-authority"
	PropertyTypeSegment         = "property-type"
	OwnershipTypeSegment        = "ownership-type"
	LicensingTypeSegment        = "licensing-type"
	SelectiveLicenceSegment     = "selective-licence"
	HmoMandatoryLicenceSegment  = "hmo-mandatory-licence"
	HmoAdditionalLicenceSegment = "hmo-additional-licence"
	OccupancySegment            = "occupancy"
	NumberOfHouseholdsSegment   = "number-of-households"
	NumberOfPeopleSegment       = "number-of-people"
	CheckAnswersSegment         = "check-answers"
)

type lookupMode int

const (
	addressesFound lookupMode = iota + 1
	noAddressesFound
)

type selectMode int

const (
	addressSelected selectMode = iota + 1
	manualAddressSelected
	addressAlreadyRegistered
)

type occupancyMode int

const (
	occupied occupancyMode = iota + 1
	vacant
)

// Deps are the services the journey reads from and submits to.
type Deps struct {
	Registrar        ports.PropertyRegistrar
	Addresses        ports.AddressLookup
	LocalAuthorities ports.LocalAuthorities
}

func (d Deps) validate() error {
	switch {
	case d.Registrar == nil:
		return domain.NewConfigurationError("property registration needs a registrar")
	case d.Addresses == nil:
		return domain.NewConfigurationError("property registration needs an address lookup")
	case d.LocalAuthorities == nil:
		return domain.NewConfigurationError("property registration needs a local authority list")
	}
	return nil
}

// Journey is the property registration journey bound to one journey state.
type Journey struct {
	state *journey.StateService
	deps  Deps
	graph *journey.Graph

	taskList             *journey.Step[journey.Complete, journey.NoInput]
	lookupAddress        *journey.Step[lookupMode, LookupAddressForm]
	noAddressFound       *journey.Step[journey.Complete, journey.NoInput]
	selectAddress        *journey.Step[selectMode, SelectAddressForm]
	alreadyRegistered    *journey.Step[journey.Complete, journey.NoInput]
	manualAddress        *journey.Step[journey.Complete, ManualAddressForm]
	localAuthority       *journey.Step[journey.Complete, LocalAuthorityForm]
	propertyType         *journey.Step[journey.Complete, PropertyTypeForm]
	ownershipType        *journey.Step[journey.Complete, OwnershipTypeForm]
	licensingType        *journey.Step[LicensingType, LicensingTypeForm]
	selectiveLicence     *journey.Step[journey.Complete, LicenceNumberForm]
	hmoMandatoryLicence  *journey.Step[journey.Complete, LicenceNumberForm]
	hmoAdditionalLicence *journey.Step[journey.Complete, LicenceNumberForm]
	occupancy            *journey.Step[occupancyMode, OccupancyForm]
	households           *journey.Step[journey.Complete, NumberOfHouseholdsForm]
	people               *journey.Step[journey.Complete, NumberOfPeopleForm]
	checkAnswers         *journey.Step[journey.Complete, journey.NoInput]

	addressTask        *journey.Task
	propertyTypeTask   *journey.Task
	ownershipTask      *journey.Task
	licensingTask      *journey.Task
	occupancyTask      *journey.Task
	checkAndSubmitTask *journey.Task

	sections []journey.Section
}

// New declares and builds the journey against state.
func New(state *journey.StateService, deps Deps, opts ...journey.BuilderOption) (*Journey, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	j := &Journey{state: state, deps: deps}
	j.newSteps()
	j.newTasks()

	graph, err := journey.Journey(state, j.declare, opts...)
	if err != nil {
		return nil, err
	}
	j.graph = graph
	return j, nil
}

// Build returns a graph factory for hosts that build a fresh journey per request.
func Build(deps Deps, opts ...journey.BuilderOption) func(state *journey.StateService) (*journey.Graph, error) {
	return func(state *journey.StateService) (*journey.Graph, error) {
		j, err := New(state, deps, opts...)
		if err != nil {
			return nil, err
		}
		return j.Graph(), nil
	}
}

// Graph returns the built step graph.
func (j *Journey) Graph() *journey.Graph {
	return j.graph
}

func (j *Journey) newTasks() {
	j.addressTask = journey.NewTask("address", func(ts *journey.TaskSteps) {
		ts.Step(LookupAddressSegment, j.lookupAddress,
			journey.HandleSubmit(j.lookupAddress, j.submitLookup),
			journey.BackStep(j.taskList),
		)
		ts.Step(NoAddressFoundSegment, j.noAddressFound,
			journey.Parents(j.lookupAddress.HasOutcome(noAddressesFound)),
			journey.NextStep(j.manualAddress),
			journey.BackStep(j.lookupAddress),
		)
		ts.Step(SelectAddressSegment, j.selectAddress,
			journey.Parents(j.lookupAddress.HasOutcome(addressesFound)),
			journey.Routes(j.selectAddress, func(mode selectMode) journey.Routable {
				switch mode {
				case manualAddressSelected:
					return j.manualAddress
				case addressAlreadyRegistered:
					return j.alreadyRegistered
				default:
					return j.addressTask.Exit()
				}
			}),
			journey.BackStep(j.lookupAddress),
		)
		ts.Step(AlreadyRegisteredSegment, j.alreadyRegistered,
			journey.Parents(j.selectAddress.HasOutcome(addressAlreadyRegistered)),
			journey.NextStep(j.lookupAddress),
			journey.BackStep(j.selectAddress),
		)
		ts.Step(ManualAddressSegment, j.manualAddress,
			journey.Parents(journey.Or(
				j.selectAddress.HasOutcome(manualAddressSelected),
				journey.Always(j.noAddressFound),
			)),
			journey.NextStep(j.localAuthority),
			journey.BackStep(j.lookupAddress),
		)
		ts.Step(LocalAuthoritySegment, j.localAuthority,
			journey.Parents(journey.Always(j.manualAddress)),
			journey.NextStep(j.addressTask.Exit()),
			journey.BackStep(j.manualAddress),
		)
		ts.Exit(journey.Parents(journey.Or(
			j.selectAddress.HasOutcome(addressSelected),
			journey.Always(j.localAuthority),
		)))
	})

	j.propertyTypeTask = journey.NewTask("property-type", func(ts *journey.TaskSteps) {
		ts.Step(PropertyTypeSegment, j.propertyType,
			journey.NextStep(j.propertyTypeTask.Exit()),
			journey.BackStep(j.taskList),
		)
		ts.Exit(journey.Parents(journey.Always(j.propertyType)))
	})

	j.ownershipTask = journey.NewTask("ownership-type", func(ts *journey.TaskSteps) {
		ts.Step(OwnershipTypeSegment, j.ownershipType,
			journey.NextStep(j.ownershipTask.Exit()),
			journey.BackStep(j.taskList),
		)
		ts.Exit(journey.Parents(journey.Always(j.ownershipType)))
	})

	j.licensingTask = journey.NewTask("licensing", func(ts *journey.TaskSteps) {
		ts.Step(LicensingTypeSegment, j.licensingType,
			journey.Routes(j.licensingType, func(mode LicensingType) journey.Routable {
				switch mode {
				case SelectiveLicence:
					return j.selectiveLicence
				case HmoMandatoryLicence:
					return j.hmoMandatoryLicence
				case HmoAdditionalLicence:
					return j.hmoAdditionalLicence
				default:
					return j.licensingTask.Exit()
				}
			}),
			journey.BackStep(j.taskList),
		)
		for _, licence := range []struct {
			segment string
			step    *journey.Step[journey.Complete, LicenceNumberForm]
			mode    LicensingType
		}{
			{SelectiveLicenceSegment, j.selectiveLicence, SelectiveLicence},
			{HmoMandatoryLicenceSegment, j.hmoMandatoryLicence, HmoMandatoryLicence},
			{HmoAdditionalLicenceSegment, j.hmoAdditionalLicence, HmoAdditionalLicence},
		} {
			ts.Step(licence.segment, licence.step,
				journey.Parents(j.licensingType.HasOutcome(licence.mode)),
				journey.NextStep(j.licensingTask.Exit()),
				journey.BackStep(j.licensingType),
			)
		}
		ts.Exit(journey.Parents(journey.Or(
			j.licensingType.HasOutcome(NoLicensing),
			journey.Always(j.selectiveLicence),
			journey.Always(j.hmoMandatoryLicence),
			journey.Always(j.hmoAdditionalLicence),
		)))
	})

	j.occupancyTask = journey.NewTask("occupancy", func(ts *journey.TaskSteps) {
		ts.Step(OccupancySegment, j.occupancy,
			journey.Routes(j.occupancy, func(mode occupancyMode) journey.Routable {
				if mode == occupied {
					return j.households
				}
				return j.occupancyTask.Exit()
			}),
			journey.BackStep(j.taskList),
		)
		ts.Step(NumberOfHouseholdsSegment, j.households,
			journey.Parents(j.occupancy.HasOutcome(occupied)),
			journey.NextStep(j.people),
			journey.BackStep(j.occupancy),
		)
		ts.Step(NumberOfPeopleSegment, j.people,
			journey.Parents(journey.Always(j.households)),
			journey.NextStep(j.occupancyTask.Exit()),
			journey.BackStep(j.households),
		)
		ts.Exit(journey.Parents(journey.Or(
			j.occupancy.HasOutcome(vacant),
			journey.Always(j.people),
		)))
	})

	j.checkAndSubmitTask = journey.NewTask("check-and-submit", func(ts *journey.TaskSteps) {
		ts.Step(CheckAnswersSegment, j.checkAnswers,
			journey.HandleSubmit(j.checkAnswers, j.submit),
			journey.BackStep(j.taskList),
		)
		ts.Exit(journey.Parents(journey.Always(j.checkAnswers)))
	})

	j.sections = []journey.Section{
		journey.NewSection("registerProperty.taskList.register.heading",
			j.addressTask, j.propertyTypeTask, j.ownershipTask, j.licensingTask, j.occupancyTask),
		journey.NewSection("registerProperty.taskList.checkAndSubmit.heading", j.checkAndSubmitTask),
	}
}

func (j *Journey) declare(b *journey.Builder) {
	b.UnreachableStepStep(j.taskList)
	b.Step(TaskListSegment, j.taskList, journey.NextStep(j.addressTask))

	b.Task(j.addressTask, journey.RedirectToFunc(j.afterTask(j.propertyTypeTask)))
	b.Task(j.propertyTypeTask,
		journey.TaskParents(journey.IsComplete(j.addressTask)),
		journey.RedirectToFunc(j.afterTask(j.ownershipTask)),
	)
	b.Task(j.ownershipTask,
		journey.TaskParents(journey.IsComplete(j.propertyTypeTask)),
		journey.RedirectToFunc(j.afterTask(j.licensingTask)),
	)
	b.Task(j.licensingTask,
		journey.TaskParents(journey.IsComplete(j.ownershipTask)),
		journey.RedirectToFunc(j.afterTask(j.occupancyTask)),
	)
	b.Task(j.occupancyTask,
		journey.TaskParents(journey.IsComplete(j.licensingTask)),
		journey.RedirectToFunc(j.afterTask(j.checkAndSubmitTask)),
	)
	b.Task(j.checkAndSubmitTask,
		journey.TaskParents(journey.And(
			journey.IsComplete(j.addressTask),
			journey.IsComplete(j.propertyTypeTask),
			journey.IsComplete(j.ownershipTask),
			journey.IsComplete(j.licensingTask),
			journey.IsComplete(j.occupancyTask),
		)),
		journey.RedirectTo(j.taskList),
	)
}

// afterTask sends a journey leaving a task on to next, or back to
// check-answers when the task was entered to change an answer.
func (j *Journey) afterTask(next journey.Routable) func(ctx context.Context) (journey.Routable, error) {
	return func(ctx context.Context) (journey.Routable, error) {
		name, err := j.state.SubJourneyName(ctx)
		if err != nil {
			return nil, err
		}
		if name == ChangeAnswerSubJourney {
			return j.checkAnswers, nil
		}
		return next, nil
	}
}

// Sections summarises the task list.
func (j *Journey) Sections(ctx context.Context) ([]journey.SectionSummary, error) {
	out := make([]journey.SectionSummary, 0, len(j.sections))
	for _, section := range j.sections {
		summary, err := section.Summary(ctx, j.state.JourneyID())
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}
