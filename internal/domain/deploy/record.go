package deploy

import "time"

// Mode identifies which deployment workflow produced a record.
type Mode string

const (
	// ModeProvision is the first-time host bring-up workflow.
	ModeProvision Mode = "provision"
	// ModeUpdate is the code-refresh-and-restart workflow.
	ModeUpdate Mode = "update"
)

// StepStatus is the terminal state of a single workflow step.
type StepStatus string

const (
	// StepStatusOK means the step ran and succeeded.
	StepStatusOK StepStatus = "ok"
	// StepStatusFailed means the step ran and returned an error.
	StepStatusFailed StepStatus = "failed"
	// StepStatusSkipped means the step never ran because an earlier step failed.
	StepStatusSkipped StepStatus = "skipped"
)

// Health is the observed state of the remote service unit after a deployment.
type Health string

const (
	// HealthUnknown means the deployment never reached the health check.
	HealthUnknown Health = "unknown"
	// HealthActive means the unit reported active within the health window.
	HealthActive Health = "active"
	// HealthFailed means the unit entered a failed state.
	HealthFailed Health = "failed"
	// HealthTimeout means the unit did not become active before the deadline.
	HealthTimeout Health = "timeout"
)

// Actor identifies who performed a deployment.
type Actor struct {
	// Hostname is the workstation the deployment was launched from.
	Hostname string `json:"hostname"`
	// Username is the local user who launched the deployment.
	Username string `json:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// StepOutcome records how one workflow step finished.
type StepOutcome struct {
	// ID is the stable step identifier, e.g. "git.sync".
	ID string `json:"id"`
	// Status is the terminal state of the step.
	Status StepStatus `json:"status"`
	// Error holds the failure message when Status is StepStatusFailed.
	Error string `json:"error,omitempty"`
	// Duration is how long the step ran. Zero for skipped steps.
	Duration time.Duration `json:"duration"`
}

// Record captures the result of one deployment run against a host.
type Record struct {
	// Mode is the workflow that produced this record.
	Mode Mode `json:"mode"`
	// Host is the remote address the deployment targeted.
	Host string `json:"host"`
	// Actor is who launched the deployment.
	Actor *Actor `json:"actor,omitempty"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// FinishedAt is when the run ended, successfully or not.
	FinishedAt time.Time `json:"finished_at"`
	// Revision is the short commit hash of the checkout after the run,
	// empty if the run failed before the revision could be read.
	Revision string `json:"revision,omitempty"`
	// Steps holds one outcome per declared workflow step.
	Steps []StepOutcome `json:"steps"`
	// ServiceHealth is the observed unit health after the run.
	ServiceHealth Health `json:"service_health"`
}

// Succeeded reports whether every step of the run finished ok.
func (r *Record) Succeeded() bool {
	if len(r.Steps) == 0 {
		return false
	}

	for _, step := range r.Steps {
		if step.Status != StepStatusOK {
			return false
		}
	}

	return true
}

// Clone returns a copy of the record to avoid leaking internal references.
func (r *Record) Clone() *Record {
	cloned := *r
	cloned.Actor = r.Actor.Clone()
	cloned.Steps = make([]StepOutcome, len(r.Steps))
	copy(cloned.Steps, r.Steps)

	return &cloned
}
