package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusConstants(t *testing.T) {
	statuses := []string{RunStatusRunning, RunStatusPendingReview, RunStatusSucceeded, RunStatusFailed}
	seen := map[string]bool{}
	for _, s := range statuses {
		assert.NotEmpty(t, s)
		assert.False(t, seen[s], "duplicate status %s", s)
		seen[s] = true
	}
}

func TestTrainingRun_IsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{RunStatusRunning, false},
		{RunStatusPendingReview, false},
		{RunStatusSucceeded, true},
		{RunStatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, (&TrainingRun{Status: tt.status}).IsTerminal())
		})
	}
}

func TestSampleStats_LabelRatio(t *testing.T) {
	assert.Equal(t, 0.0, SampleStats{}.LabelRatio())
	assert.InDelta(t, 0.7117, SampleStats{Total: 281, Labeled: 200}.LabelRatio(), 0.0001)
	assert.Equal(t, 1.0, SampleStats{Total: 5, Labeled: 5}.LabelRatio())
}

func TestDefaultFlags(t *testing.T) {
	th := DefaultTrainingThresholds()
	assert.Equal(t, 200, th.MinNewSamples)
	assert.Equal(t, 0.7, th.MinLabelRatio)

	cs := DefaultColdStartFlag()
	assert.True(t, cs.Enabled)
	assert.Equal(t, 50, cs.MinSamples)
}

func TestFlagJSONShape(t *testing.T) {
	// Values must match the seeded rows in the initial migration.
	raw, err := json.Marshal(DefaultTrainingThresholds())
	require.NoError(t, err)
	assert.JSONEq(t, `{"min_new_samples":200,"min_label_ratio":0.7}`, string(raw))

	raw, err = json.Marshal(DefaultColdStartFlag())
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"min_samples":50}`, string(raw))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	got := nullIfEmpty("donor@example.com")
	require.NotNil(t, got)
	assert.Equal(t, "donor@example.com", *got)
}

func TestMigrationsEmbedded(t *testing.T) {
	up, err := migrationFiles.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CREATE TABLE IF NOT EXISTS training_runs")
	assert.Contains(t, string(up), "UNIQUE (model_name, version)")

	_, err = migrationFiles.ReadFile("migrations/000001_init.down.sql")
	assert.NoError(t, err)
}
