package probe

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/models"
)

// Shell runs a command on the device and returns its standard output.
type Shell interface {
	Shell(ctx context.Context, args ...string) (string, error)
}

// Device-side commands, issued in this order.
var (
	SdkCommand    = []string{"getprop", "ro.build.version.sdk"}
	ConfigCommand = []string{"am", "get-config"}
)

// Capabilities runs the probe commands through sh and parses the result.
// Every failure is reported as a ProbeFailure naming the dimension, except
// that a canceled ctx is returned as is.
func Capabilities(ctx context.Context, sh Shell) (*models.DeviceSpec, error) {
	sdkOutput, err := sh.Shell(ctx, SdkCommand...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, Failure(models.FieldSdkVersion, err)
	}
	if _, err := ParseSdk(sdkOutput); err != nil {
		return nil, AsFailure(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	configOutput, err := sh.Shell(ctx, ConfigCommand...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, Failure(models.FieldAbis, err)
	}

	spec, err := Parse(sdkOutput, configOutput)
	if err != nil {
		return nil, AsFailure(err)
	}
	if err := spec.Validate(); err != nil {
		return nil, AsFailure(err)
	}
	return spec, nil
}

// Failure builds the ProbeFailure error for a dimension.
func Failure(field models.SpecField, cause error) *errors.Error {
	return errors.Wrap(cause, errors.KindProbeFailure, "PROBE_FAILED",
		fmt.Sprintf("Error retrieving device %s. Please try again.", field)).
		WithContext("dimension", string(field))
}

// AsFailure converts parser and validation errors into a ProbeFailure.
func AsFailure(err error) error {
	var pe *Error
	if stderrors.As(err, &pe) {
		return Failure(pe.Field, err)
	}
	var fe *models.FieldError
	if stderrors.As(err, &fe) {
		return Failure(fe.Field, err)
	}
	return err
}
