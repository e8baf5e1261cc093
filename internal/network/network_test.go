package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	t.Run("known networks resolve", func(t *testing.T) {
		for _, name := range Names() {
			cfg, err := Lookup(name)
			require.NoError(t, err, name)
			assert.Equal(t, name, cfg.Name)
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		_, err := Lookup("COSMOS-EU")
		require.Error(t, err)

		var unknownErr *UnknownNetworkError
		require.ErrorAs(t, err, &unknownErr)
		assert.Equal(t, "COSMOS-EU", unknownErr.Name)
		assert.Contains(t, err.Error(), CosmosUK)
	})

	t.Run("lookup is case sensitive", func(t *testing.T) {
		_, err := Lookup("cosmos-uk")
		assert.Error(t, err)
	})
}

func TestConfigConsistency(t *testing.T) {
	for _, name := range Names() {
		cfg, err := Lookup(name)
		require.NoError(t, err)

		t.Run(name, func(t *testing.T) {
			assert.Len(t, cfg.ErrorFields, len(cfg.DataFields),
				"every data field needs a matching error column")

			for _, field := range cfg.DataFields {
				_, ok := cfg.Reducers[field]
				assert.True(t, ok, "data field %q has no reducer", field)
			}
			for field, flagField := range cfg.QCFlags {
				_, ok := cfg.Reducers[flagField]
				assert.True(t, ok, "QC flag column %q for %q has no reducer", flagField, field)
			}

			assert.NotEmpty(t, cfg.DateKey)
			assert.NotEmpty(t, cfg.DateColumns)
			assert.NotEmpty(t, cfg.DateLayout)
			assert.NotEmpty(t, cfg.FileExtension)
		})
	}
}

func TestHasQC(t *testing.T) {
	uk, err := Lookup(CosmosUK)
	require.NoError(t, err)
	assert.True(t, uk.HasQC())

	us, err := Lookup(CosmosUS)
	require.NoError(t, err)
	assert.False(t, us.HasQC())

	nmdb, err := Lookup(NMDB)
	require.NoError(t, err)
	assert.False(t, nmdb.HasQC())
}

func TestExpectedLength(t *testing.T) {
	start := time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	stop := start.Add(24 * time.Hour)

	tests := []struct {
		network  string
		expected int
	}{
		{CosmosUS, 24},
		{CosmosUK, 25},
		{NMDB, 25},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			cfg, err := Lookup(tt.network)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.ExpectedLength(start, stop, time.Hour))
		})
	}
}
