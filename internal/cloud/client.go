// Package cloud defines the control-plane boundary: the narrow client
// surface the engine reconciles against, the classified error every
// adapter returns, and an in-memory implementation for tests.
package cloud

import (
	"context"

	"github.com/stackrig-io/stackrig/internal/resource"
)

// ControlPlaneClient is the provider surface the engine drives. The
// control plane itself is the system of record: there is no local state,
// every question is answered by asking it again. Implementations classify
// every failure into a *Error before returning it.
type ControlPlaneClient interface {
	// Create provisions a new resource and returns its provider ID. When
	// a resource with the same identifying key already exists the error
	// is classified DuplicateExists.
	Create(ctx context.Context, kind resource.Kind, key string, props map[string]any) (string, error)

	// Find resolves the identifying key to a provider ID. An absent
	// resource yields NotFound; more than one candidate yields
	// Inconsistent.
	Find(ctx context.Context, kind resource.Kind, key string) (string, error)

	// Tag applies tags to an existing resource.
	Tag(ctx context.Context, kind resource.Kind, providerID string, tags map[string]string) error

	// CheckAvailable reports whether the resource is ready for use. A
	// NotFound error means "not visible yet" and is treated by the poller
	// as unavailable rather than fatal.
	CheckAvailable(ctx context.Context, kind resource.Kind, providerID string) (bool, error)
}
