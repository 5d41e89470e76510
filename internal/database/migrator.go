package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"warbler/internal/middleware"

	"gorm.io/gorm"
)

// SchemaHistory records one applied SQL migration.
type SchemaHistory struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName keeps the history table name stable across model renames.
func (SchemaHistory) TableName() string {
	return "schema_history"
}

// Migrator applies a Catalog to a database and keeps schema_history in step.
type Migrator struct {
	db      *gorm.DB
	catalog Catalog
}

// NewMigrator returns a Migrator for the built-in migrations.
func NewMigrator(db *gorm.DB) *Migrator {
	return NewMigratorFor(db, Migrations())
}

// NewMigratorFor returns a Migrator for an explicit catalog.
func NewMigratorFor(db *gorm.DB, catalog Catalog) *Migrator {
	return &Migrator{db: db, catalog: catalog}
}

// Applied returns the recorded versions in ascending order. A database that
// has never been migrated reports none.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	db := m.db.WithContext(ctx)
	if !db.Migrator().HasTable(&SchemaHistory{}) {
		return nil, nil
	}

	var versions []int
	if err := db.Model(&SchemaHistory{}).Order("version").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read schema history: %w", err)
	}
	return versions, nil
}

// Pending returns the catalog entries not yet applied.
func (m *Migrator) Pending(ctx context.Context) (Catalog, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return m.catalog.Pending(applied), nil
}

// Up applies every pending migration in order and returns how many ran. It
// refuses to run when the history names versions this binary does not know,
// which means the database was migrated by a newer build.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaHistory{}); err != nil {
		return 0, fmt.Errorf("prepare schema history: %w", err)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if err := checkHistory(applied, m.catalog); err != nil {
		return 0, err
	}

	pending := m.catalog.Pending(applied)
	for _, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			return 0, err
		}
		middleware.Logger.Info("migration applied", slog.String("migration", mig.ID()))
	}
	return len(pending), nil
}

// Down reverts a single applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig, ok := m.catalog.Find(version)
	if !ok {
		return fmt.Errorf("no migration with version %06d", version)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %s is not applied", mig.ID())
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", mig.ID(), err)
		}
		return tx.Delete(&SchemaHistory{}, version).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("migration reverted", slog.String("migration", mig.ID()))
	return nil
}

// apply runs the up script and records it in one transaction.
func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.UpScript).Error; err != nil {
			return fmt.Errorf("apply %s: %w", mig.ID(), err)
		}
		return tx.Create(&SchemaHistory{Version: mig.Version, Name: mig.Name}).Error
	})
}

func checkHistory(applied []int, catalog Catalog) error {
	unknown := catalog.unknown(applied)
	if len(unknown) == 0 {
		return nil
	}

	ids := make([]string, len(unknown))
	for i, v := range unknown {
		ids[i] = fmt.Sprintf("%06d", v)
	}
	return errors.New("schema history has versions with no migration file: " + strings.Join(ids, ", "))
}
