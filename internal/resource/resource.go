package resource

import (
	"fmt"
	"strings"
)

// Kind identifies a provisionable resource category. The set is closed:
// providers dispatch on it and reject kinds they do not implement.
type Kind string

const (
	Network            Kind = "Network"
	Subnet             Kind = "Subnet"
	InternetGateway    Kind = "InternetGateway"
	ElasticIP          Kind = "ElasticIP"
	NatGateway         Kind = "NatGateway"
	RouteTable         Kind = "RouteTable"
	SecurityGroup      Kind = "SecurityGroup"
	KeyPair            Kind = "KeyPair"
	IamRole            Kind = "IamRole"
	IamInstanceProfile Kind = "IamInstanceProfile"
	RoleAttachment     Kind = "RoleAttachment"
	ProfileAssociation Kind = "ProfileAssociation"
	Bucket             Kind = "Bucket"
	BucketObject       Kind = "BucketObject"
	ComputeInstance    Kind = "ComputeInstance"
)

// ErrorKind classifies a failed control-plane call. Classification happens
// exactly once, at the provider boundary; everything above the provider
// switches on these values and never inspects raw provider errors.
type ErrorKind string

const (
	// DuplicateExists means a resource with the same identifying key
	// already exists. The reconciler recovers from this by adoption.
	DuplicateExists ErrorKind = "DuplicateExists"
	// NotFound means the lookup matched nothing.
	NotFound ErrorKind = "NotFound"
	// Inconsistent means the control plane contradicted itself, e.g. it
	// reported a duplicate that a follow-up lookup cannot see, or a key
	// matched more than one resource.
	Inconsistent ErrorKind = "Inconsistent"
	// Timeout means the availability poll exhausted its attempt budget.
	Timeout ErrorKind = "Timeout"
	// Conflict means the slot is already occupied, e.g. an instance
	// profile that already carries a role.
	Conflict ErrorKind = "Conflict"
	// ProviderError covers everything else: auth, limits, throttling.
	ProviderError ErrorKind = "ProviderError"
)

// Spec declares one resource a pipeline should make exist.
type Spec struct {
	// Step names this spec inside its pipeline. Ref values and DependsOn
	// entries of later specs point at it.
	Step string `json:"step"`
	Kind Kind   `json:"kind"`
	// Key is the identifying key, unique per kind within the provider
	// scope (a tag:Name value, a bucket name, a role name).
	Key   string         `json:"key"`
	Props map[string]any `json:"props,omitempty"`

	// DependsOn lists step names that must have completed, fatally or
	// not, earlier in the same pipeline. Use Ref inside Props to consume
	// a prior step's provider ID.
	DependsOn []string `json:"dependsOn,omitempty"`

	// Tags are applied after the resource exists. A tagging failure on a
	// reused resource downgrades to a warning instead of halting the run.
	Tags map[string]string `json:"tags,omitempty"`

	// WaitAvailable blocks the pipeline after this step until the
	// provider reports the resource available, bounded by the pipeline's
	// wait policy.
	WaitAvailable bool `json:"waitAvailable,omitempty"`

	// BestEffort downgrades failures whose kind appears in Tolerates to a
	// warning so the pipeline keeps going.
	BestEffort bool        `json:"bestEffort,omitempty"`
	Tolerates  []ErrorKind `json:"tolerates,omitempty"`
}

// Handle is the provider's receipt for a resource that now exists.
type Handle struct {
	Kind       Kind   `json:"kind"`
	ProviderID string `json:"providerId"`
	// Created is false when an existing resource was adopted.
	Created bool `json:"created"`
}

// Status is the terminal state of one pipeline step.
type Status string

const (
	StatusCreated Status = "created"
	StatusReused  Status = "reused"
	StatusWarned  Status = "warned"
	StatusFailed  Status = "failed"
)

// Outcome records what one pipeline step did.
type Outcome struct {
	Step    string    `json:"step"`
	Kind    Kind      `json:"kind"`
	Key     string    `json:"key"`
	Status  Status    `json:"status"`
	Handle  Handle    `json:"handle,omitzero"`
	ErrKind ErrorKind `json:"errorKind,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Err     error     `json:"-"`
}

// Created builds the outcome for a freshly provisioned resource.
func (s Spec) Created(providerID string) Outcome {
	return Outcome{
		Step:   s.Step,
		Kind:   s.Kind,
		Key:    s.Key,
		Status: StatusCreated,
		Handle: Handle{Kind: s.Kind, ProviderID: providerID, Created: true},
	}
}

// Reused builds the outcome for an adopted, already existing resource.
func (s Spec) Reused(providerID string) Outcome {
	return Outcome{
		Step:   s.Step,
		Kind:   s.Kind,
		Key:    s.Key,
		Status: StatusReused,
		Handle: Handle{Kind: s.Kind, ProviderID: providerID},
	}
}

// Failed builds the outcome for a step that could not be satisfied.
func (s Spec) Failed(kind ErrorKind, err error) Outcome {
	o := Outcome{
		Step:    s.Step,
		Kind:    s.Kind,
		Key:     s.Key,
		Status:  StatusFailed,
		ErrKind: kind,
		Err:     err,
	}
	if err != nil {
		o.Detail = err.Error()
	}
	return o
}

// Run is the ordered record of a pipeline execution.
type Run struct {
	Outcomes []Outcome `json:"outcomes"`
}

func (r *Run) Append(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
}

// Handle returns the receipt produced by the named step. Steps that
// warned or failed produced none.
func (r *Run) Handle(step string) (Handle, bool) {
	for _, o := range r.Outcomes {
		if o.Step == step && (o.Status == StatusCreated || o.Status == StatusReused) {
			return o.Handle, true
		}
	}
	return Handle{}, false
}

// Completed reports whether the named step already finished without a
// fatal outcome. Warned steps count as completed.
func (r *Run) Completed(step string) bool {
	for _, o := range r.Outcomes {
		if o.Step == step && o.Status != StatusFailed {
			return true
		}
	}
	return false
}

// Failed reports whether the run stopped on a fatal outcome.
func (r *Run) Failed() bool {
	return r.Err() != nil
}

// Err surfaces the fatal outcome as a single diagnostic, nil otherwise.
func (r *Run) Err() error {
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			return fmt.Errorf("step %s (%s %q): %s", o.Step, o.Kind, o.Key, o.Detail)
		}
	}
	return nil
}

// Count tallies outcomes with the given status.
func (r *Run) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// RefPrefix marks a Props or Tags value as a reference to an earlier
// step's provider ID.
const RefPrefix = "ref://"

// Ref builds a reference to the named step: Ref("network") == "ref://network".
func Ref(step string) string {
	return RefPrefix + step
}

// ParseRef extracts the step name from a reference value.
func ParseRef(v string) (string, bool) {
	step, ok := strings.CutPrefix(v, RefPrefix)
	if !ok || step == "" {
		return "", false
	}
	return step, true
}
