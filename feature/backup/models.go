package backup

import (
	"time"

	"guild-backup/core/snapshot"
)

// Record is one row of the backup index.
type Record struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	GuildID   string    `gorm:"size:32;index" json:"guild_id"`
	GuildName string    `gorm:"size:100" json:"guild_name"`
	CreatorID string    `gorm:"size:32" json:"creator_id"`
	ObjectKey string    `gorm:"size:255" json:"object_key"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName implements gorm's tabler.
func (Record) TableName() string {
	return "backups"
}

// recordColumns are the columns Migrate expects on the live table.
var recordColumns = []string{"id", "guild_id", "guild_name", "creator_id", "object_key", "size_bytes", "created_at"}

// Info is a backup record together with its summary indicators.
type Info struct {
	Record
	Summary snapshot.Summary `json:"summary"`
}

// CreateResult is returned by Service.Create.
type CreateResult struct {
	Record  Record          `json:"record"`
	Skipped []snapshot.Skip `json:"skipped"`
}
