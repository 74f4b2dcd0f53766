package engine

import (
	"context"
	"fmt"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/logging"
	"github.com/stackrig-io/stackrig/internal/resource"
)

// Pipeline executes an ordered sequence of specs against one client,
// stopping at the first fatal outcome.
type Pipeline struct {
	client cloud.ControlPlaneClient
	wait   WaitPolicy
}

type Option func(*Pipeline)

// WithWaitPolicy overrides the availability poll bounds used by steps
// that request a wait.
func WithWaitPolicy(p WaitPolicy) Option {
	return func(pl *Pipeline) {
		pl.wait = p
	}
}

func New(client cloud.ControlPlaneClient, opts ...Option) *Pipeline {
	p := &Pipeline{client: client, wait: DefaultWaitPolicy()}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run ensures each spec in order. Provider IDs of earlier steps are
// substituted for ref:// values before a step executes. The first fatal
// outcome stops the run; steps after it are not attempted and do not
// appear in the result. Best-effort steps whose failure kind is tolerated
// are downgraded to a warning and the run continues.
func (p *Pipeline) Run(ctx context.Context, specs []resource.Spec) *resource.Run {
	run := &resource.Run{}
	logging.Debug("pipeline starting", "steps", len(specs))

	for _, spec := range specs {
		o := p.runStep(ctx, spec, run)
		run.Append(o)
		if o.Status == resource.StatusFailed {
			logging.Error("pipeline halted", "step", o.Step, "errorKind", o.ErrKind, "detail", o.Detail)
			break
		}
	}
	return run
}

func (p *Pipeline) runStep(ctx context.Context, spec resource.Spec, run *resource.Run) resource.Outcome {
	resolved, err := resolveSpec(spec, run)
	if err != nil {
		return spec.Failed(resource.Inconsistent, err)
	}

	o := Ensure(ctx, p.client, resolved)
	if o.Status == resource.StatusFailed {
		if resolved.BestEffort && tolerated(resolved.Tolerates, o.ErrKind) {
			logging.Warn("best-effort step failed, continuing",
				"step", o.Step, "errorKind", o.ErrKind, "detail", o.Detail)
			o.Status = resource.StatusWarned
		}
		return o
	}

	if resolved.WaitAvailable {
		if werr := WaitAvailable(ctx, p.client, o.Handle.Kind, o.Handle.ProviderID, p.wait); werr != nil {
			o.Status = resource.StatusFailed
			o.ErrKind = cloud.KindOf(werr)
			o.Err = werr
			o.Detail = werr.Error()
			return o
		}
	}

	if len(resolved.Tags) > 0 {
		if terr := p.client.Tag(ctx, o.Handle.Kind, o.Handle.ProviderID, resolved.Tags); terr != nil {
			if o.Status == resource.StatusReused {
				// The resource predates this run; losing a tag on it is
				// not worth halting the pipeline.
				logging.Warn("tagging reused resource failed",
					"step", o.Step, "id", o.Handle.ProviderID, "error", terr)
				o.Status = resource.StatusWarned
				o.ErrKind = cloud.KindOf(terr)
				o.Err = terr
				o.Detail = terr.Error()
				return o
			}
			o.Status = resource.StatusFailed
			o.ErrKind = cloud.KindOf(terr)
			o.Err = terr
			o.Detail = terr.Error()
			return o
		}
	}
	return o
}

// resolveSpec validates DependsOn and substitutes ref:// values in Props
// and Tags with provider IDs from earlier steps.
func resolveSpec(spec resource.Spec, run *resource.Run) (resource.Spec, error) {
	for _, dep := range spec.DependsOn {
		if !run.Completed(dep) {
			return spec, fmt.Errorf("step %q depends on %q, which has not completed", spec.Step, dep)
		}
	}

	if spec.Props != nil {
		props := make(map[string]any, len(spec.Props))
		for k, v := range spec.Props {
			rv, err := resolveValue(v, run)
			if err != nil {
				return spec, fmt.Errorf("step %q: %w", spec.Step, err)
			}
			props[k] = rv
		}
		spec.Props = props
	}

	if spec.Tags != nil {
		tags := make(map[string]string, len(spec.Tags))
		for k, v := range spec.Tags {
			rv, err := resolveString(v, run)
			if err != nil {
				return spec, fmt.Errorf("step %q: %w", spec.Step, err)
			}
			tags[k] = rv
		}
		spec.Tags = tags
	}
	return spec, nil
}

func resolveValue(val any, run *resource.Run) (any, error) {
	switch v := val.(type) {
	case string:
		return resolveString(v, run)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			rs, err := resolveString(s, run)
			if err != nil {
				return nil, err
			}
			out[i] = rs
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, mv := range v {
			rv, err := resolveValue(mv, run)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, sv := range v {
			rv, err := resolveValue(sv, run)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	case []map[string]any:
		out := make([]map[string]any, len(v))
		for i, m := range v {
			rv, err := resolveValue(m, run)
			if err != nil {
				return nil, err
			}
			out[i] = rv.(map[string]any)
		}
		return out, nil
	default:
		return v, nil
	}
}

func resolveString(s string, run *resource.Run) (string, error) {
	step, ok := resource.ParseRef(s)
	if !ok {
		return s, nil
	}
	h, ok := run.Handle(step)
	if !ok {
		return "", fmt.Errorf("reference %q does not name a completed step", s)
	}
	return h.ProviderID, nil
}

func tolerated(kinds []resource.ErrorKind, kind resource.ErrorKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
