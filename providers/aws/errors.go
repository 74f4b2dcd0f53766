package aws

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	"github.com/stackrig-io/stackrig/internal/cloud"
	"github.com/stackrig-io/stackrig/internal/resource"
)

// Codes the AWS control plane uses to say "this already exists", per
// service.
var duplicateCodes = map[string]bool{
	"InvalidKeyPair.Duplicate": true,
	"InvalidGroup.Duplicate":   true,
	"EntityAlreadyExists":      true,
	"BucketAlreadyOwnedByYou":  true,
	"BucketAlreadyExists":      true,
}

var notFoundCodes = map[string]bool{
	"InvalidVpcID.NotFound":             true,
	"InvalidSubnetID.NotFound":          true,
	"InvalidInternetGatewayID.NotFound": true,
	"InvalidAllocationID.NotFound":      true,
	"NatGatewayNotFound":                true,
	"InvalidRouteTableID.NotFound":      true,
	"InvalidGroup.NotFound":             true,
	"InvalidKeyPair.NotFound":           true,
	"InvalidInstanceID.NotFound":        true,
	"NoSuchEntity":                      true,
	"NoSuchBucket":                      true,
	"NoSuchKey":                         true,
	"NotFound":                          true,
}

// Conflict codes mean the slot is occupied, typically by something
// equivalent: an instance profile that already carries a role reports
// LimitExceeded, an instance that already has a profile association
// reports IncorrectState.
var conflictCodes = map[string]bool{
	"LimitExceeded":               true,
	"IncorrectState":              true,
	"Resource.AlreadyAssociated":  true,
	"InvalidPermission.Duplicate": true,
}

// classify maps an SDK error onto the reconciler's error vocabulary.
// Errors that are already classified (pre-flight duplicates) and context
// cancellation pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var already *cloud.Error
	if errors.As(err, &already) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return &cloud.Error{
			Kind:    kindForCode(code),
			Code:    code,
			Message: apiErr.ErrorMessage(),
			Err:     err,
		}
	}
	return &cloud.Error{Kind: resource.ProviderError, Message: err.Error(), Err: err}
}

func kindForCode(code string) resource.ErrorKind {
	switch {
	case duplicateCodes[code]:
		return resource.DuplicateExists
	case notFoundCodes[code]:
		return resource.NotFound
	case conflictCodes[code]:
		return resource.Conflict
	}
	return resource.ProviderError
}
