package checks

import (
	"fmt"
	"sync"

	"guild-backup/core/database"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SchemaReport is the result of comparing a model with its live table.
type SchemaReport struct {
	Table          string   `json:"table"`
	Matched        bool     `json:"matched"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}

// CheckSchema verifies that the table model maps to has every column gorm
// expects. A failed inspection is reported, not returned.
func CheckSchema(db *gorm.DB, model interface{}) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	sch, err := schema.Parse(model, &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}

	report := &SchemaReport{
		Table:          sch.Table,
		Matched:        true,
		MissingColumns: []string{},
		Errors:         []string{},
	}

	missing, err := database.MissingColumns(db, sch.Table, sch.DBNames...)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", sch.Table, err))
		report.Matched = false
		return report, nil
	}
	if len(missing) > 0 {
		report.MissingColumns = missing
		report.Matched = false
	}
	return report, nil
}
