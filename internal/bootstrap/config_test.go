package bootstrap

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/aquaops-console/config"
)

func TestSetLogLevel(t *testing.T) {
	t.Cleanup(func() { logLevel.Set(slog.LevelInfo) })

	tests := []struct {
		name    string
		level   string
		want    slog.Level
		wantErr bool
	}{
		{name: "empty defaults to info", level: "", want: slog.LevelInfo},
		{name: "debug", level: "debug", want: slog.LevelDebug},
		{name: "upper case warn", level: "WARN", want: slog.LevelWarn},
		{name: "unknown", level: "chatty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, logLevel.Level())
		})
	}
}

func TestInitLoggerFollowsLevel(t *testing.T) {
	t.Cleanup(func() { logLevel.Set(slog.LevelInfo) })

	logger := InitLogger()
	require.NoError(t, SetLogLevel("error"))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelWarn))
	require.NoError(t, SetLogLevel("debug"))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestGetEnabledServices(t *testing.T) {
	assert.Equal(t, []string{"http", "keepalive"}, GetEnabledServices(&config.AppConfig{Services: "keepalive,http"}))
	assert.Equal(t, []string{"keepalive"}, GetEnabledServices(&config.AppConfig{Services: "keepalive"}))
	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestValidateServiceConfig(t *testing.T) {
	require.NoError(t, ValidateServiceConfig(&config.AppConfig{Services: "http"}))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))
	require.Error(t, ValidateServiceConfig(nil))
}
