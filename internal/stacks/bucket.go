package stacks

import (
	"github.com/stackrig-io/stackrig/internal/resource"
)

// Bucket builds the single-step pipeline ensuring one bucket exists in
// the given region.
func Bucket(name, region string) []resource.Spec {
	return []resource.Spec{
		{
			Step: "bucket",
			Kind: resource.Bucket,
			Key:  name,
			Props: map[string]any{
				"region": region,
			},
		},
	}
}
