package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindInternal, ExitInternal},
		{KindIllegalInput, ExitIllegalInput},
		{KindMultipleDevices, ExitDeviceSelection},
		{KindDeviceNotFound, ExitDeviceSelection},
		{KindNoDevices, ExitDeviceSelection},
		{KindProbeFailure, ExitProbeFailure},
		{KindSdkIncompatible, ExitIncompatible},
		{KindAbiIncompatible, ExitIncompatible},
		{KindUnknownModule, ExitUnknownModule},
		{KindMalformedArchive, ExitMalformedArchive},
		{KindInstallation, ExitInstallationError},
		{KindCanceled, ExitCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.kind))
		})
	}
}

func TestKindOf(t *testing.T) {
	err := NewFileNotFoundError("/tmp/app.apks")
	wrapped := fmt.Errorf("install: %w", err)

	assert.Equal(t, KindIllegalInput, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("boom")))
	assert.True(t, stderrors.Is(wrapped, New(KindIllegalInput, "FILE_NOT_FOUND", "")))
	assert.False(t, stderrors.Is(wrapped, New(KindIllegalInput, "MISSING_FLAG", "")))
}

func TestErrorMessage(t *testing.T) {
	err := NewFileNotFoundError("/tmp/app.apks")
	assert.Equal(t, "File '/tmp/app.apks' was not found.", err.Error())

	cause := stderrors.New("permission denied")
	wrapped := Wrap(cause, KindInternal, "IO", "Unable to read archive.")
	assert.Equal(t, "Unable to read archive.: permission denied", wrapped.Error())
	assert.Equal(t, cause, stderrors.Unwrap(wrapped))
}

func TestFormatDetailed(t *testing.T) {
	err := Wrap(stderrors.New("exit status 1"), KindInstallation, "INSTALL_FAILED", "Installation failed.").
		WithContext("serial", "id1").
		WithContext("apks", "2").
		WithSuggestion("Uninstall the existing app")

	want := "INSTALLATION_ERROR [INSTALL_FAILED]: Installation failed.\n" +
		"\nContext:\n   apks: 2\n   serial: id1\n" +
		"\nUnderlying cause: exit status 1\n" +
		"\nSuggestions:\n   • Uninstall the existing app\n"
	assert.Equal(t, want, err.FormatDetailed())
}
