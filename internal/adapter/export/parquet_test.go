package export

import (
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteResultParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "averaged.parquet")
	result := testResult()
	require.NoError(t, WriteResultParquet(path, result))

	rows, err := parquet.ReadFile[averagedRow](path)
	require.NoError(t, err)
	require.Len(t, rows, len(result.Index)*len(result.Fields))

	assert.Equal(t, averagedRow{
		Time:         result.Index[1].Unix(),
		Field:        "CTS_MOD",
		RelChangePct: 1.5,
		ErrorPct:     0.13,
	}, rows[1])
}

func TestWriteStationsParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stations.parquet")
	require.NoError(t, WriteStationsParquet(path, testResult()))

	rows, err := parquet.ReadFile[stationRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, stationRow{Station: "ALIC1", CutoffRigidityGV: 2.5}, rows[0])
	assert.Equal(t, stationRow{Station: "CHOBH", CutoffRigidityGV: 2.6}, rows[1])
}
