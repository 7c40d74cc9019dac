/*
Package journey implements the journey engine: guided, multi-page data
collection built from steps grouped into tasks.

A journey is declared with a Builder. Steps and tasks are declared in
dependency order; every step names the parents (a Parentage predicate over
stored answers) that must hold before it can be visited. Build initialises the
declarations in order and rejects any step whose parents depend on a node that
has not been initialised yet, which rules out dependency loops and forward
references.

	graph, err := journey.Journey(state, func(b *journey.Builder) {
		b.UnreachableStepStep(taskList)
		b.Step("task-list", taskList, journey.NextURL("task-list"))
		b.Task(occupancy, journey.TaskParents(journey.Always(taskList)), journey.RedirectTo(checkAnswers))
		b.Step("check-answers", checkAnswers,
			journey.Parents(journey.IsComplete(occupancy)),
			journey.NextURL("/"))
	})

The built Graph maps route segments to Orchestrators, which handle GET
(render or redirect to the unreachable step destination) and POST (validate,
persist, route) against a StateService.

StateService is the journey answer store. It resolves a journey identifier to
JourneyMetadata and reads and writes the answer bag addressed by its DataKey;
sub-journeys share their base journey's bag.
*/
package journey
