package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/repository"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	migrations, err := LoadMigrations(migrationFiles)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "001_core.sql", migrations[0].Name)
	assert.Contains(t, migrations[0].SQL, "appointments_doctor_date_key")
	assert.Equal(t, 2, migrations[1].Version)
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))

	err := mapError(fmt.Errorf("get: %w", sql.ErrNoRows))
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	err = mapError(&pq.Error{Code: "23505", Constraint: "appointments_doctor_date_key"})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
	assert.Contains(t, err.Error(), "appointments_doctor_date_key")

	other := &pq.Error{Code: "23503"}
	assert.Same(t, other, mapError(other))
}
