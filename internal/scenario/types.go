package scenario

// FeatureCase attaches a feature vector to a case and asserts the
// resulting feature component.
type FeatureCase struct {
	Values []float32 `yaml:"values"`
	Index  int       `yaml:"index"`
	// ExpectComponent is floor(values[index] / cohesion_factor).
	ExpectComponent *uint64 `yaml:"expect_component,omitempty"`
	ExpectDegraded  bool    `yaml:"expect_degraded,omitempty"`
}

// Case is one access check. Either DID (resolved through the registry) or
// Tier is set.
type Case struct {
	DID     string       `yaml:"did,omitempty"`
	Tier    string       `yaml:"tier,omitempty"`
	Intent  string       `yaml:"intent"`
	Expect  string       `yaml:"expect"`
	Reason  string       `yaml:"reason,omitempty"`
	Feature *FeatureCase `yaml:"feature,omitempty"`
}

// Scenario is a named collection of access cases.
type Scenario struct {
	Name string `yaml:"name"`
	// FailOpen overrides the configured default branch when set.
	FailOpen *bool  `yaml:"fail_open,omitempty"`
	Cases    []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Subject  string `json:"subject"`
	Intent   string `json:"intent"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason"`
	Failure  string `json:"failure,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
