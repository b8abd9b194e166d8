package checks

import (
	"testing"
	"time"

	"guild-backup/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	CreatedAt time.Time
}

func TestCheckSchema(t *testing.T) {
	t.Run("Nil DB", func(t *testing.T) {
		_, err := CheckSchema(nil, &widget{})
		assert.Error(t, err)
	})

	t.Run("Matched", func(t *testing.T) {
		db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		require.NoError(t, db.AutoMigrate(&widget{}))

		report, err := CheckSchema(db, &widget{})
		require.NoError(t, err)
		assert.Equal(t, "widgets", report.Table)
		assert.True(t, report.Matched)
		assert.Empty(t, report.MissingColumns)
	})

	t.Run("Missing Table", func(t *testing.T) {
		db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)

		report, err := CheckSchema(db, &widget{})
		require.NoError(t, err)
		assert.False(t, report.Matched)
		assert.ElementsMatch(t, []string{"id", "name", "created_at"}, report.MissingColumns)
	})

	t.Run("Missing Column", func(t *testing.T) {
		db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
		require.NoError(t, err)
		require.NoError(t, db.Exec("CREATE TABLE widgets (id text PRIMARY KEY, name text)").Error)

		report, err := CheckSchema(db, &widget{})
		require.NoError(t, err)
		assert.False(t, report.Matched)
		assert.Equal(t, []string{"created_at"}, report.MissingColumns)
	})
}
