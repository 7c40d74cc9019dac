package journey

import (
	"context"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// TaskStatus is the derived progress of a task.
type TaskStatus string

const (
	NotStarted   TaskStatus = "NOT_STARTED"
	InProgress   TaskStatus = "IN_PROGRESS"
	TaskComplete TaskStatus = "COMPLETE"
)

// Task is a named, ordered group of steps shown as one checklist item.
//
// Every task ends in a notional exit step. The task is complete exactly when
// its exit is reachable, so the exit's parents express which answers the
// current path requires and which cross-step rules must hold.
type Task struct {
	name    string
	declare func(t *TaskSteps)
	members []StepNode
	exit    *Step[Complete, NoInput]
	redir   func(ctx context.Context) (domain.Destination, error)
}

// NewTask creates a task whose steps are declared by declare when the task is added to a Builder.
func NewTask(name string, declare func(t *TaskSteps)) *Task {
	t := &Task{name: name, declare: declare}
	t.exit = NewStep[Complete, NoInput](name+"-exit", exitConfig{})
	t.exit.exitOf = t
	return t
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

func (t *Task) initialised() bool {
	return t.exit.ready
}

// Exit returns the notional exit step. Routing to it leaves the task.
func (t *Task) Exit() Routable {
	return t.exit
}

// Steps returns the member steps in declaration order.
func (t *Task) Steps() []StepNode {
	return t.members
}

// FirstStep returns the step a task is entered through.
func (t *Task) FirstStep() StepNode {
	if len(t.members) == 0 {
		return nil
	}
	return t.members[0]
}

func (t *Task) route(ctx context.Context) (domain.Destination, error) {
	first := t.FirstStep()
	if first == nil {
		return domain.Destination{}, domain.NewConfigurationError("task %s has no steps", t.name)
	}
	return first.route(ctx)
}

func (t *Task) redirect(ctx context.Context) (domain.Destination, error) {
	if t.redir == nil {
		return domain.Destination{}, domain.NewConfigurationError("task %s has no redirect destination", t.name)
	}
	return t.redir(ctx)
}

// IsComplete reports whether the task's exit is reachable.
func (t *Task) IsComplete(ctx context.Context) (bool, error) {
	return t.exit.complete(ctx)
}

// Status derives the task progress from the stored answers.
func (t *Task) Status(ctx context.Context) (TaskStatus, error) {
	complete, err := t.IsComplete(ctx)
	if err != nil {
		return "", err
	}
	if complete {
		return TaskComplete, nil
	}
	for _, step := range t.members {
		answered, err := step.HasAnswer(ctx)
		if err != nil {
			return "", err
		}
		if answered {
			return InProgress, nil
		}
	}
	return NotStarted, nil
}

// TaskSteps collects the declarations of a task's steps.
type TaskSteps struct {
	task     *Task
	decls    []declaration
	exitOpts []StepOption
	hasExit  bool
}

// Step declares a visitable member step.
func (ts *TaskSteps) Step(segment string, step StepNode, opts ...StepOption) {
	ts.decls = append(ts.decls, declaration{segment: segment, step: step, opts: opts, task: ts.task})
}

// NotionalStep declares a member step that is never visited.
func (ts *TaskSteps) NotionalStep(step StepNode, opts ...StepOption) {
	ts.decls = append(ts.decls, declaration{step: step, opts: opts, notional: true, task: ts.task})
}

// Exit configures the task's exit step. Its parents decide when the task is complete.
func (ts *TaskSteps) Exit(opts ...StepOption) {
	ts.exitOpts = append(ts.exitOpts, opts...)
	ts.hasExit = true
}

type taskSettings struct {
	parents []Parentage
	redir   func(ctx context.Context) (domain.Destination, error)
}

// TaskOption configures a task declaration.
type TaskOption func(*taskSettings)

// TaskParents sets the predicate guarding the task's first step.
func TaskParents(p Parentage) TaskOption {
	return func(s *taskSettings) {
		s.parents = append(s.parents, p)
	}
}

// RedirectTo sends a journey leaving the task to target.
func RedirectTo(target Routable) TaskOption {
	return func(s *taskSettings) {
		s.redir = func(ctx context.Context) (domain.Destination, error) {
			return GoTo(ctx, target)
		}
	}
}

// RedirectToFunc chooses where a journey leaving the task goes, e.g. depending on the sub-journey.
func RedirectToFunc(choose func(ctx context.Context) (Routable, error)) TaskOption {
	return func(s *taskSettings) {
		s.redir = func(ctx context.Context) (domain.Destination, error) {
			target, err := choose(ctx)
			if err != nil {
				return domain.Destination{}, err
			}
			return GoTo(ctx, target)
		}
	}
}

// RedirectToURL sends a journey leaving the task to an external location.
func RedirectToURL(url string) TaskOption {
	return func(s *taskSettings) {
		s.redir = func(context.Context) (domain.Destination, error) {
			return domain.URLDestination(url), nil
		}
	}
}

type exitConfig struct{}

func (exitConfig) Template() string { return "" }

func (exitConfig) Content(context.Context) (map[string]any, error) { return nil, nil }

func (exitConfig) Bind(context.Context, domain.PageData) (NoInput, error) { return NoInput{}, nil }

func (exitConfig) Mode(context.Context, NoInput) (Complete, error) { return Completed, nil }

// Section is a display grouping of tasks on a task list.
type Section struct {
	Heading string
	Tasks   []*Task
}

// NewSection groups tasks under a heading.
func NewSection(heading string, tasks ...*Task) Section {
	return Section{Heading: heading, Tasks: tasks}
}

// TaskSummary is one row of a task list.
type TaskSummary struct {
	Name      string     `json:"name"`
	Status    TaskStatus `json:"status"`
	Startable bool       `json:"startable"`
	URL       string     `json:"url,omitempty"`
}

// SectionSummary is one section of a task list.
type SectionSummary struct {
	Heading string        `json:"heading"`
	Tasks   []TaskSummary `json:"tasks"`
}

// Summary reports the status of every task in the section.
// A task can be started when its first step is reachable; only startable tasks carry a URL.
func (s Section) Summary(ctx context.Context, journeyID string) (SectionSummary, error) {
	out := SectionSummary{Heading: s.Heading, Tasks: make([]TaskSummary, 0, len(s.Tasks))}
	for _, task := range s.Tasks {
		status, err := task.Status(ctx)
		if err != nil {
			return out, err
		}
		row := TaskSummary{Name: task.Name(), Status: status}
		if first := task.FirstStep(); first != nil {
			row.Startable, err = first.Reachable(ctx)
			if err != nil {
				return out, err
			}
			if row.Startable {
				dest, err := first.route(ctx)
				if err != nil {
					return out, err
				}
				row.URL = dest.Location(journeyID)
			}
		}
		out.Tasks = append(out.Tasks, row)
	}
	return out, nil
}
