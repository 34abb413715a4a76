package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/pixcheckout-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pixcheckout-backend/pkg/errors"
)

const latestBackupsLimit = 10

// BackupData is the JSON document stored in backups.data.
type BackupData struct {
	Transactions     []models.Transaction `json:"transactions"`
	BackupDate       time.Time            `json:"backup_date"`
	TransactionCount int                  `json:"transaction_count"`
}

// BackupSummary is one row of the backups listing.
type BackupSummary struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Description      *string    `json:"description"`
	TransactionCount int        `json:"transaction_count"`
	CreatedAt        time.Time  `json:"created_at"`
	RestoredAt       *time.Time `json:"restored_at"`
}

// ClearResult reports the snapshot taken before the wipe.
type ClearResult struct {
	BackupID uuid.UUID `json:"backup_id"`
	Deleted  int64     `json:"deleted"`
}

// RestoreResult reports how many rows came back.
type RestoreResult struct {
	BackupID uuid.UUID `json:"backup_id"`
	Restored int       `json:"restored"`
}

// ClearMetrics snapshots every transaction into a backup and deletes them, in one DB transaction.
func (s *Service) ClearMetrics(ctx context.Context) (*ClearResult, error) {
	var result ClearResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txnRepo := s.transactions.WithTx(tx)
		rows, err := txnRepo.ListAll(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transactions")
		}

		now := s.now().UTC()
		payload, err := json.Marshal(BackupData{
			Transactions:     rows,
			BackupDate:       now,
			TransactionCount: len(rows),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode backup")
		}
		description := fmt.Sprintf("Backup automático antes de limpar métricas. %d transações.", len(rows))
		backup := &models.Backup{
			Name:        "Backup Automático - " + now.Format("02/01/2006 15:04:05"),
			Description: &description,
			Data:        datatypes.JSON(payload),
		}
		if err := s.backups.WithTx(tx).Create(ctx, backup); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create backup")
		}

		deleted, err := txnRepo.DeleteAll(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete transactions")
		}
		result = ClearResult{BackupID: backup.ID, Deleted: deleted}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"backup_id": result.BackupID.String(), "deleted": result.Deleted}), "admin.metrics_cleared")
	return &result, nil
}

// Backups lists the latest snapshots, newest first.
func (s *Service) Backups(ctx context.Context) ([]BackupSummary, error) {
	rows, err := s.backups.Latest(ctx, latestBackupsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list backups")
	}
	out := make([]BackupSummary, 0, len(rows))
	for _, row := range rows {
		var meta struct {
			TransactionCount int `json:"transaction_count"`
		}
		_ = json.Unmarshal(row.Data, &meta)
		out = append(out, BackupSummary{
			ID:               row.ID,
			Name:             row.Name,
			Description:      row.Description,
			TransactionCount: meta.TransactionCount,
			CreatedAt:        row.CreatedAt,
			RestoredAt:       row.RestoredAt,
		})
	}
	return out, nil
}

// RestoreBackup replaces every current transaction with the snapshot rows. Ids
// and timestamps are regenerated; business fields come back as stored.
func (s *Service) RestoreBackup(ctx context.Context, id uuid.UUID) (*RestoreResult, error) {
	var result RestoreResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		backupRepo := s.backups.WithTx(tx)
		backup, err := backupRepo.Find(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "backup not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load backup")
		}

		var data BackupData
		if err := json.Unmarshal(backup.Data, &data); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "backup data is unreadable")
		}
		if len(data.Transactions) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "backup is empty")
		}

		txnRepo := s.transactions.WithTx(tx)
		if _, err := txnRepo.DeleteAll(ctx); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete transactions")
		}
		rows := make([]models.Transaction, 0, len(data.Transactions))
		for _, row := range data.Transactions {
			row.ID = uuid.Nil
			row.CreatedAt = time.Time{}
			row.UpdatedAt = time.Time{}
			rows = append(rows, row)
		}
		if err := txnRepo.InsertMany(ctx, rows); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert transactions")
		}
		if err := backupRepo.MarkRestored(ctx, backup.ID, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark backup restored")
		}
		result = RestoreResult{BackupID: backup.ID, Restored: len(rows)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"backup_id": result.BackupID.String(), "restored": result.Restored}), "admin.backup_restored")
	return &result, nil
}

// PurgeBackups deletes snapshots older than retention.
func (s *Service) PurgeBackups(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	deleted, err := s.backups.DeleteCreatedBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purge backups")
	}
	return deleted, nil
}
