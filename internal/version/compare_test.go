package version

import (
	"testing"

	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		engineVersion string
		configVersion string
		expectCode    errors.ErrorCode
		errorContains string
	}{
		{
			name:          "exact match",
			engineVersion: "1.2.0",
			configVersion: "1.2.0",
		},
		{
			name:          "patch differs",
			engineVersion: "1.2.0",
			configVersion: "1.2.7",
		},
		{
			name:          "older config minor",
			engineVersion: "1.3.0",
			configVersion: "1.1.0",
		},
		{
			name:          "newer config minor",
			engineVersion: "1.2.0",
			configVersion: "1.3.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "minor version mismatch",
		},
		{
			name:          "major differs",
			engineVersion: "2.0.0",
			configVersion: "1.2.0",
			expectCode:    errors.ErrCodeVersionMismatch,
			errorContains: "major version mismatch",
		},
		{
			name:          "engine is main",
			engineVersion: "main",
			configVersion: "9.0.0",
		},
		{
			name:          "config without version",
			engineVersion: "1.0.0",
			configVersion: "",
		},
		{
			name:          "v prefix on both",
			engineVersion: "v1.2.0",
			configVersion: "v1.2.0",
		},
		{
			name:          "prerelease engine",
			engineVersion: "1.2.0-alpha",
			configVersion: "1.2.0",
		},
		{
			name:          "invalid engine version",
			engineVersion: "not-a-version",
			configVersion: "1.2.0",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid engine version",
		},
		{
			name:          "invalid config version",
			engineVersion: "1.2.0",
			configVersion: "one",
			expectCode:    errors.ErrCodeInvalidVersion,
			errorContains: "invalid config version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.engineVersion, tt.configVersion)

			if tt.expectCode != 0 {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.expectCode))
				assert.Contains(t, err.Error(), tt.errorContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCurrentConfigVersionIsSupported(t *testing.T) {
	require.NoError(t, CheckConfigCompatibility(GetVersion(), ConfigVersion))
}

func TestGetVersion(t *testing.T) {
	v := GetVersion()
	assert.Equal(t, Version, v)
}
