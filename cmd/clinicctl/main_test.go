package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
)

func TestPrintAvailability(t *testing.T) {
	var out bytes.Buffer
	// Saturday.
	now := time.Date(2024, 5, 18, 12, 0, 0, 0, time.UTC)

	err := printAvailability(&out, 1, 5, "08:00:00", "17:00:00", "America/Sao_Paulo", "pt-BR", now)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "window:   Monday-Friday 08:00:00-17:00:00")
	assert.Contains(t, text, "from:     segunda-feira 08:00 (2024-05-20T08:00:00-03:00)")
	assert.Contains(t, text, "to:       sexta-feira 17:00 (2024-05-24T17:00:00-03:00)")
	assert.Contains(t, text, "timezone: America/Sao_Paulo")
}

func TestPrintAvailabilityRejectsBadInput(t *testing.T) {
	var out bytes.Buffer
	now := time.Now()

	err := printAvailability(&out, 1, 5, "17:00:00", "08:00:00", "UTC", "en", now)
	assert.ErrorContains(t, err, "available_to_time")

	err = printAvailability(&out, 1, 5, "08:00:00", "17:00:00", "Mars/Olympus", "en", now)
	assert.ErrorContains(t, err, "invalid time zone")
	assert.Empty(t, out.String())
}

func TestAvailabilityCommand(t *testing.T) {
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"doctor", "availability", "--from-day", "5", "--to-day", "1", "--tz", "UTC"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Friday-Monday")
	assert.Contains(t, out.String(), "timezone: UTC")
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	at := time.Date(2024, 5, 18, 9, 30, 0, 0, time.UTC)
	printStatus(&out, []postgres.MigrationStatus{
		{Version: 1, Name: "core", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "outbox"},
	})

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "applied")
	assert.Contains(t, string(lines[1]), "2024-05-18 09:30:00")
	assert.Contains(t, string(lines[2]), "pending")
}
