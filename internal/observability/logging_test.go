package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aion-Studio/aion-backend-sub000/internal/config"
)

func TestNewLogger(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{"json info", config.LoggingConfig{Level: "info", Format: "json"}, false},
		{"console debug", config.LoggingConfig{Level: "debug", Format: "console"}, false},
		{"json warn", config.LoggingConfig{Level: "warn", Format: "json"}, false},
		{"json error", config.LoggingConfig{Level: "error", Format: "json"}, false},
		{"unknown level", config.LoggingConfig{Level: "trace", Format: "json"}, true},
		{"unknown format", config.LoggingConfig{Level: "info", Format: "xml"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewLogger(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}
