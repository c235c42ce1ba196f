package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"wednesday", time.Wednesday, false},
		{" Wed ", time.Wednesday, false},
		{"3", time.Wednesday, false},
		{"sunday", time.Sunday, false},
		{"0", time.Sunday, false},
		{"someday", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("database.url", "postgres://localhost/barstock")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, time.Wednesday, cfg.Orders.CutoffWeekday)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, 10*1024, cfg.Audit.CompressThreshold)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BARSTOCK_DATABASE_URL", "postgres://db/barstock")
	t.Setenv("BARSTOCK_ORDERS_CUTOFF_WEEKDAY", "friday")
	t.Setenv("BARSTOCK_APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://db/barstock", cfg.Database.URL)
	assert.Equal(t, time.Friday, cfg.Orders.CutoffWeekday)
	assert.False(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	_, err := fromViper(v)
	assert.Error(t, err)

	v.Set("database.url", "postgres://localhost/barstock")
	v.Set("database.min_conns", 50)
	_, err = fromViper(v)
	assert.Error(t, err)
}
