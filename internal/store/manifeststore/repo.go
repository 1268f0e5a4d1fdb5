package manifeststore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
	"github.com/flowmesh/flowmesh/internal/manifest"
	"github.com/flowmesh/flowmesh/internal/pkg/dbctx"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
)

// Repo stores and activates versioned AppManifest documents.
type Repo interface {
	// Deploy validates and persists a new version. It never marks a
	// version active; Activate is a separate, deliberate step so a
	// newly-deployed version can be inspected before it takes live
	// traffic.
	Deploy(dbc dbctx.Context, m *workflow.AppManifest) error
	GetVersion(dbc dbctx.Context, app, version string) (*workflow.AppManifest, error)
	// Activate marks (app, version) active and deactivates every other
	// version of app in the same transaction, so ActiveFor never
	// observes two active versions mid-flight.
	Activate(dbc dbctx.Context, app, version string) error
	ActiveFor(dbc dbctx.Context, app string) (*workflow.AppManifest, error)
	ListVersions(dbc dbctx.Context, app string) ([]string, error)
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger) Repo {
	return &repo{db: db, log: baseLog.With("repo", "manifeststore.Repo")}
}

func (r *repo) Deploy(dbc dbctx.Context, m *workflow.AppManifest) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := manifest.Validate(m); err != nil {
		return fmt.Errorf("manifeststore: deploy: %w", err)
	}
	doc, err := manifest.Encode(m)
	if err != nil {
		return fmt.Errorf("manifeststore: deploy: %w", err)
	}
	rec := &Record{App: m.App, Version: m.Version, Document: doc}
	return transaction.WithContext(dbc.Ctx).Create(rec).Error
}

func (r *repo) GetVersion(dbc dbctx.Context, app, version string) (*workflow.AppManifest, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rec Record
	err := transaction.WithContext(dbc.Ctx).
		Where("app = ? AND version = ?", app, version).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return manifest.Decode(rec.Document)
}

func (r *repo) Activate(dbc dbctx.Context, app, version string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Record{}).
			Where("app = ? AND active = ?", app, true).
			Update("active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&Record{}).
			Where("app = ? AND version = ?", app, version).
			Update("active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("manifeststore: activate: %s@%s not found", app, version)
		}
		return nil
	})
}

func (r *repo) ActiveFor(dbc dbctx.Context, app string) (*workflow.AppManifest, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var rec Record
	err := transaction.WithContext(dbc.Ctx).
		Where("app = ? AND active = ?", app, true).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return manifest.Decode(rec.Document)
}

func (r *repo) ListVersions(dbc dbctx.Context, app string) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var versions []string
	err := transaction.WithContext(dbc.Ctx).
		Model(&Record{}).
		Where("app = ?", app).
		Order("created_at ASC").
		Pluck("version", &versions).Error
	return versions, err
}
