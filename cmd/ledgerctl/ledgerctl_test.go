package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayoutPeriod(t *testing.T) {
	t.Run("week of a date", func(t *testing.T) {
		p, err := payoutPeriod("2026-10-08", "", "")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC), p.Start)
		assert.Equal(t, time.Date(2026, 10, 11, 23, 59, 59, 999999999, time.UTC), p.End)
	})

	t.Run("explicit range includes the whole end day", func(t *testing.T) {
		p, err := payoutPeriod("", "2026-10-01", "2026-10-15")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), p.Start)
		assert.Equal(t, time.Date(2026, 10, 15, 23, 59, 59, 999999999, time.UTC), p.End)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := payoutPeriod("", "2026-10-15", "2026-10-01")
		assert.Error(t, err)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := payoutPeriod("10/08/2026", "", "")
		assert.ErrorContains(t, err, "--week-of")
	})

	t.Run("defaults to the current week", func(t *testing.T) {
		p, err := payoutPeriod("", "", "")
		require.NoError(t, err)
		assert.True(t, p.Contains(time.Now()))
		assert.Equal(t, time.Monday, p.Start.Weekday())
	})
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("", "as-of")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = parseDate("2026-02-28", "as-of")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, 28, d.Day())
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"payouts", "generate"},
		{"payouts", "summary"},
		{"balances", "reconcile"},
		{"balances", "show"},
		{"aging"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	generate, _, err := root.Find([]string{"payouts", "generate"})
	require.NoError(t, err)
	assert.NotNil(t, generate.Flags().Lookup("week-of"))
	assert.NotNil(t, root.PersistentFlags().Lookup("tenant"))
}
