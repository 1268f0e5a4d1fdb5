// Package manifeststore persists versioned AppManifest documents via
// GORM, using the same domain-struct-plus-repo pattern used elsewhere in
// this codebase (a gorm-tagged struct paired with a repo interface).
package manifeststore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Record is the durable row for one (app, version) manifest. The decoded
// YAML is kept canonical in Document; App/Version/Active are promoted to
// real columns so ActiveFor can be a plain indexed query instead of a
// jsonb scan.
type Record struct {
	ID       uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	App      string         `gorm:"column:app;not null;index:idx_manifest_app_version,unique" json:"app"`
	Version  string         `gorm:"column:version;not null;index:idx_manifest_app_version,unique" json:"version"`
	Active   bool           `gorm:"column:active;not null;default:false;index" json:"active"`
	Document datatypes.JSON `gorm:"column:document;type:jsonb;not null" json:"document"`
	CreatedAt time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time     `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Record) TableName() string { return "app_manifest" }
