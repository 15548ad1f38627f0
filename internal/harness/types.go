package harness

// StepResult is the observed outcome of one scenario search.
type StepResult struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint,omitempty"`
	ResultType  string `json:"result_type,omitempty"`
	Rows        int    `json:"rows"`
	Result      any    `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Steps holds one entry per search, in scenario order.
	Steps []StepResult `json:"steps"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Step finds a step by name.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}
