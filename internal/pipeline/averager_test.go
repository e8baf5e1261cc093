package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciertide/neutronavg/internal/adapter/stationfile"
	"github.com/glaciertide/neutronavg/internal/network"
	"github.com/glaciertide/neutronavg/internal/observability"
)

var (
	testStart = time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC)
	testStop  = time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeUKStation writes an hourly COSMOS-UK data file with constant counts,
// pressure and humidity, spanning from first for the given number of samples.
func writeUKStation(t *testing.T, dir, name string, first time.Time, samples int, counts float64) {
	t.Helper()

	var b strings.Builder
	b.WriteString("SITE_ID,SITE_NAME,DATE_TIME,CTS_MOD,CTS_MOD_QCFLAG,PA,PA_QCFLAG,Q,Q_QCFLAG\n")
	for i := 0; i < samples; i++ {
		ts := first.Add(time.Duration(i) * time.Hour)
		fmt.Fprintf(&b, "%s,Fixture,%s,%g,0,1010.0,0,8.0,0\n", name, ts.Format("2006-01-02 15:04:05"), counts)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(b.String()), 0o600))
}

// writeUKMetadata writes the station metadata table for the given stations.
func writeUKMetadata(t *testing.T, dir string, rigidities map[string]float64) {
	t.Helper()

	var b strings.Builder
	b.WriteString("SITE_ID,CutoffRigidity\n")
	for name, rigidity := range rigidities {
		fmt.Fprintf(&b, "%s,%g\n", name, rigidity)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte(b.String()), 0o600))
}

func testOptions(dir string) Options {
	return Options{
		DataDir:         dir,
		Network:         network.CosmosUK,
		Start:           testStart,
		Stop:            testStop,
		RigidityMin:     0,
		RigidityMax:     20,
		OriginalCadence: time.Hour,
		TargetCadence:   time.Hour,
	}
}

func newTestAverager(opts Options) (*Averager, *observability.Metrics) {
	logger := testLogger()
	metrics := observability.NewMetrics()
	return New(opts, stationfile.NewImporter(logger), logger, metrics), metrics
}

func TestRun(t *testing.T) {
	t.Run("two constant stations average to zero change", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5, "CHOBH": 2.6})
		first := testStart.Add(-2 * time.Hour)
		writeUKStation(t, dir, "ALIC1", first, 30, 1500)
		writeUKStation(t, dir, "CHOBH", first, 30, 1600)

		averager, metrics := newTestAverager(testOptions(dir))
		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, network.CosmosUK, result.Network)
		assert.Equal(t, 2, result.Stations.Len())
		assert.ElementsMatch(t, []string{"ALIC1", "CHOBH"}, result.Stations.Names)

		// 25 hourly samples, both window endpoints included.
		require.Len(t, result.Index, 25)
		assert.Equal(t, testStart, result.Index[0])
		assert.Equal(t, testStop, result.Index[24])

		require.Len(t, result.Fields, 1)
		field := result.Fields[0]
		assert.Equal(t, "CTS_MOD", field.Name)
		assert.Equal(t, "E_CTS_MOD", field.ErrorName)
		require.Len(t, field.RelChangePct, 25)

		for i := range field.RelChangePct {
			assert.InDelta(t, 0, field.RelChangePct[i], 1e-9, "sample %d", i)
			assert.Greater(t, field.ErrorPct[i], 0.0)
			assert.False(t, math.IsNaN(field.ErrorPct[i]))
		}

		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StationsConsidered))
		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StationsContributing))
	})

	t.Run("excluded station skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5, "CHOBH": 2.6})
		first := testStart.Add(-2 * time.Hour)
		writeUKStation(t, dir, "ALIC1", first, 30, 1500)
		writeUKStation(t, dir, "CHOBH", first, 30, 1600)

		opts := testOptions(dir)
		opts.ExcludedStations = []string{"CHOBH"}
		averager, metrics := newTestAverager(opts)

		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"ALIC1"}, result.Stations.Names)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationsSkipped.WithLabelValues("excluded")))
	})

	t.Run("rigidity range gates stations", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5, "HIGHR": 12.0})
		first := testStart.Add(-2 * time.Hour)
		writeUKStation(t, dir, "ALIC1", first, 30, 1500)
		writeUKStation(t, dir, "HIGHR", first, 30, 1600)

		opts := testOptions(dir)
		opts.RigidityMax = 5
		averager, metrics := newTestAverager(opts)

		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"ALIC1"}, result.Stations.Names)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationsSkipped.WithLabelValues("rigidity_out_of_range")))
	})

	t.Run("short station skipped, run continues", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5, "SHORT": 2.6})
		writeUKStation(t, dir, "ALIC1", testStart.Add(-2*time.Hour), 30, 1500)
		// Ends hours before the window stop.
		writeUKStation(t, dir, "SHORT", testStart.Add(-2*time.Hour), 10, 1600)

		averager, metrics := newTestAverager(testOptions(dir))
		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"ALIC1"}, result.Stations.Names)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationsSkipped.WithLabelValues("invalid")))
	})

	t.Run("missing data file skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5, "GHOST": 2.6})
		writeUKStation(t, dir, "ALIC1", testStart.Add(-2*time.Hour), 30, 1500)

		averager, metrics := newTestAverager(testOptions(dir))
		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"ALIC1"}, result.Stations.Names)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationsSkipped.WithLabelValues("import_error")))
	})

	t.Run("no contributing stations", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5})
		writeUKStation(t, dir, "ALIC1", testStart.Add(-2*time.Hour), 30, 1500)

		opts := testOptions(dir)
		opts.ExcludedStations = []string{"ALIC1"}
		averager, _ := newTestAverager(opts)

		_, err := averager.Run(context.Background())
		assert.ErrorIs(t, err, ErrNoContributingStations)
	})

	t.Run("unknown network", func(t *testing.T) {
		opts := testOptions(t.TempDir())
		opts.Network = "COSMOS-EU"
		averager, _ := newTestAverager(opts)

		_, err := averager.Run(context.Background())
		var unknownErr *network.UnknownNetworkError
		assert.ErrorAs(t, err, &unknownErr)
	})

	t.Run("missing data dir", func(t *testing.T) {
		opts := testOptions(filepath.Join(t.TempDir(), "nope"))
		averager, _ := newTestAverager(opts)

		_, err := averager.Run(context.Background())
		assert.ErrorIs(t, err, stationfile.ErrMissingPath)
	})

	t.Run("unsupported cadence ratio aborts the run", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5})
		writeUKStation(t, dir, "ALIC1", testStart.Add(-2*time.Hour), 30, 1500)

		opts := testOptions(dir)
		opts.OriginalCadence = 40 * time.Minute
		averager, _ := newTestAverager(opts)

		_, err := averager.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cadence")
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5})
		writeUKStation(t, dir, "ALIC1", testStart.Add(-2*time.Hour), 30, 1500)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		averager, _ := newTestAverager(testOptions(dir))
		_, err := averager.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("run timestamps come from the clock", func(t *testing.T) {
		frozen := time.Date(2019, 4, 1, 12, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(frozen))
		defer SetClock(nil)

		dir := t.TempDir()
		writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5})
		writeUKStation(t, dir, "ALIC1", testStart.Add(-2*time.Hour), 30, 1500)

		averager, _ := newTestAverager(testOptions(dir))
		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, frozen, result.StartedAt)
		assert.Equal(t, frozen, result.FinishedAt)
	})
}

func TestQCFlaggedSamplesExcluded(t *testing.T) {
	dir := t.TempDir()
	writeUKMetadata(t, dir, map[string]float64{"ALIC1": 2.5})

	// One sample inside the window carries a raised flag and a wild count.
	var b strings.Builder
	b.WriteString("SITE_ID,SITE_NAME,DATE_TIME,CTS_MOD,CTS_MOD_QCFLAG,PA,PA_QCFLAG,Q,Q_QCFLAG\n")
	first := testStart.Add(-2 * time.Hour)
	for i := 0; i < 30; i++ {
		ts := first.Add(time.Duration(i) * time.Hour)
		counts, flag := 1500.0, 0
		if i == 10 {
			counts, flag = 99999, 1
		}
		fmt.Fprintf(&b, "ALIC1,Fixture,%s,%g,%d,1010.0,0,8.0,0\n", ts.Format("2006-01-02 15:04:05"), counts, flag)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ALIC1.csv"), []byte(b.String()), 0o600))

	averager, metrics := newTestAverager(testOptions(dir))
	result, err := averager.Run(context.Background())
	require.NoError(t, err)

	// The flagged spike never reaches the average: the gap is interpolated
	// from its constant neighbours, so the change series stays flat.
	field := result.Fields[0]
	for i, v := range field.RelChangePct {
		assert.InDelta(t, 0, v, 1e-9, "sample %d", i)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SamplesInterpolated))
}

func TestNewDefaultsPercentiles(t *testing.T) {
	averager, _ := newTestAverager(Options{})
	assert.Equal(t, float64(DefaultMinPercentile), averager.opts.MinPercentile)
	assert.Equal(t, float64(DefaultMaxPercentile), averager.opts.MaxPercentile)

	custom, _ := newTestAverager(Options{MinPercentile: 5, MaxPercentile: 90})
	assert.Equal(t, 5.0, custom.opts.MinPercentile)
	assert.Equal(t, 90.0, custom.opts.MaxPercentile)
}

// writeUSStation writes a COSMOS-US data file with one row per timestamp
// and constant counts.
func writeUSStation(t *testing.T, dir, name string, stamps []time.Time) {
	t.Helper()

	var b strings.Builder
	b.WriteString("Date Time MOD UNMO PRESS TEM RH\n")
	for _, ts := range stamps {
		fmt.Fprintf(&b, "%s 1800 900 880.0 5.0 60.0\n", ts.Format("2006/01/02 15:04"))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".txt"), []byte(b.String()), 0o600))
}

// writeUSMetadata writes the COSMOS-US metadata table, preserving order so
// the first listed station fixes the canonical index.
func writeUSMetadata(t *testing.T, dir string, names []string) {
	t.Helper()

	var b strings.Builder
	b.WriteString("SiteName\tCutoffRigidity\n")
	for _, name := range names {
		fmt.Fprintf(&b, "%s\t2.5\n", name)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFileName), []byte(b.String()), 0o600))
}

func hourlyStamps(first time.Time, n int) []time.Time {
	stamps := make([]time.Time, n)
	for i := range stamps {
		stamps[i] = first.Add(time.Duration(i) * time.Hour)
	}
	return stamps
}

// COSMOS-US counts the window length without the extra endpoint sample, so
// the resampled grid has two valid placements of matching length: one
// starting on the window start and one shifted a full cadence later. Strict
// alignment must reject whichever placement disagrees with the first
// accepted station.
func TestStrictAlignmentRejectsShiftedStation(t *testing.T) {
	// STNA samples every hour at half past, snapping to the grid that
	// starts at the window start. STNB has no sample in the first window
	// hour but one exactly on the stop boundary, snapping to the grid
	// shifted one hour later, at the same length.
	onGrid := hourlyStamps(testStart.Add(-90*time.Minute), 28)
	shifted := append([]time.Time{testStart.Add(-30 * time.Minute)},
		hourlyStamps(testStart.Add(90*time.Minute), 23)...)
	shifted = append(shifted, testStop)

	setup := func(t *testing.T, strict bool) (*Averager, *observability.Metrics) {
		dir := t.TempDir()
		writeUSMetadata(t, dir, []string{"STNA", "STNB"})
		writeUSStation(t, dir, "STNA", onGrid)
		writeUSStation(t, dir, "STNB", shifted)
		opts := testOptions(dir)
		opts.Network = network.CosmosUS
		opts.StrictAlignment = strict
		return newTestAverager(opts)
	}

	t.Run("strict run skips the shifted station", func(t *testing.T) {
		averager, metrics := setup(t, true)
		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []string{"STNA"}, result.Stations.Names)
		require.NotEmpty(t, result.Index)
		assert.Equal(t, testStart, result.Index[0])
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StationsSkipped.WithLabelValues("misaligned")))
	})

	t.Run("default run accepts both placements", func(t *testing.T) {
		averager, metrics := setup(t, false)
		result, err := averager.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 2, result.Stations.Len())
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StationsSkipped.WithLabelValues("misaligned")))
	})
}

func TestSameIndex(t *testing.T) {
	a := []time.Time{testStart, testStart.Add(time.Hour)}
	b := []time.Time{testStart, testStart.Add(time.Hour)}
	c := []time.Time{testStart, testStart.Add(2 * time.Hour)}

	assert.True(t, sameIndex(a, b))
	assert.False(t, sameIndex(a, c))
	assert.False(t, sameIndex(a, a[:1]))
}
