// Package engine turns declarative resource specs into control-plane
// calls: ensure-exists reconciliation, fail-fast pipelines, and a bounded
// availability poll. It holds no state of its own; the control plane is
// the system of record and re-running is always safe.
package engine

import (
	"context"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/logging"
	"github.com/stackrig-io/stackrig/internal/resource"
)

// Ensure makes the resource described by spec exist. It attempts the
// create first and adopts an already existing resource with the same
// identifying key instead of failing. Ensure never retries and never
// mutates a resource it did not create.
func Ensure(ctx context.Context, client cloud.ControlPlaneClient, spec resource.Spec) resource.Outcome {
	logging.Debug("ensuring resource", "kind", spec.Kind, "key", spec.Key)

	id, err := client.Create(ctx, spec.Kind, spec.Key, spec.Props)
	if err == nil {
		logging.Info("created resource", "kind", spec.Kind, "key", spec.Key, "id", id)
		return spec.Created(id)
	}
	if !cloud.IsKind(err, resource.DuplicateExists) {
		logging.Error("create failed", "kind", spec.Kind, "key", spec.Key, "error", err)
		return spec.Failed(cloud.KindOf(err), err)
	}

	id, err = client.Find(ctx, spec.Kind, spec.Key)
	if err == nil {
		// Existence satisfies the declared intent; the resource's actual
		// properties are not verified against spec.Props.
		logging.Warn("reusing existing resource, properties unverified",
			"kind", spec.Kind, "key", spec.Key, "id", id)
		return spec.Reused(id)
	}
	if cloud.IsKind(err, resource.NotFound) {
		return spec.Failed(resource.Inconsistent, cloud.Errorf(resource.Inconsistent,
			"%s %q: control plane reported a duplicate but lookup found nothing", spec.Kind, spec.Key))
	}
	logging.Error("lookup after duplicate failed", "kind", spec.Kind, "key", spec.Key, "error", err)
	return spec.Failed(cloud.KindOf(err), err)
}
