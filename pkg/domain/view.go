package domain

// View is what the host renders for a step.
type View struct {
	// Segment is the route segment of the step being rendered.
	Segment string `json:"segment"`

	// Template names the page template the host should use.
	Template string `json:"template"`

	// Content holds step specific content (message keys, options, summary rows).
	Content map[string]any `json:"content,omitempty"`

	// Form is the pre-filled or re-submitted form data.
	Form PageData `json:"form,omitempty"`

	// Model is the stored answer decoded into the step's form model, set on
	// GET when the stored data still decodes. In-process renderers use it;
	// JSON clients read Form.
	Model any `json:"-"`

	// Errors holds field level validation messages keyed by field name.
	Errors map[string][]string `json:"errors,omitempty"`

	// BackURL is the location of the previous step, if any.
	BackURL string `json:"backUrl,omitempty"`
}

// ErrorView is the generic failure page.
func ErrorView(message string) *View {
	return &View{
		Template: "error/500",
		Content:  map[string]any{"title": "commonText.error.title", "message": message},
	}
}
