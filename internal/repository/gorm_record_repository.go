package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/domain"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/observability"
)

const gormStoreName = "database"

// GormRecordRepository keeps delivery records in a SQL database. It backs
// local development and deployments that do not use Airtable.
type GormRecordRepository struct{ db *gorm.DB }

func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

func (r *GormRecordRepository) List(ctx context.Context) ([]domain.DeliveryRecord, error) {
	var records []domain.DeliveryRecord
	if err := r.db.WithContext(ctx).Order("match_id asc").Order("id asc").Find(&records).Error; err != nil {
		observability.RecordStoreOperation(ctx, gormStoreName, "list", "error")
		return nil, err
	}
	observability.RecordStoreOperation(ctx, gormStoreName, "list", "success")
	return records, nil
}

func (r *GormRecordRepository) Get(ctx context.Context, id string) (*domain.DeliveryRecord, error) {
	var rec domain.DeliveryRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordStoreOperation(ctx, gormStoreName, "get", "not_found")
			return nil, ErrRecordNotFound
		}
		observability.RecordStoreOperation(ctx, gormStoreName, "get", "error")
		return nil, err
	}
	observability.RecordStoreOperation(ctx, gormStoreName, "get", "success")
	return &rec, nil
}

func (r *GormRecordRepository) FindByToken(ctx context.Context, token string) (*domain.DeliveryRecord, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrRecordNotFound
	}
	var rec domain.DeliveryRecord
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordStoreOperation(ctx, gormStoreName, "find_by_token", "not_found")
			return nil, ErrRecordNotFound
		}
		observability.RecordStoreOperation(ctx, gormStoreName, "find_by_token", "error")
		return nil, err
	}
	observability.RecordStoreOperation(ctx, gormStoreName, "find_by_token", "success")
	return &rec, nil
}

func (r *GormRecordRepository) MarkPending(ctx context.Context, id string, update domain.PendingUpdate) error {
	return r.patch(ctx, "mark_pending", id, map[string]any{
		"analyst_name":  strings.TrimSpace(update.AnalystName),
		"analyst_email": strings.TrimSpace(update.AnalystEmail),
		"status":        domain.StatusPending,
		"code":          update.Code,
		"token":         update.Token,
	})
}

func (r *GormRecordRepository) MarkVerified(ctx context.Context, id string, update domain.VerifiedUpdate) error {
	return r.patch(ctx, "mark_verified", id, map[string]any{
		"status":   domain.StatusVerified,
		"pdf_url":  update.PDFURL,
		"pdf_hash": update.PDFHash,
	})
}

// Create inserts a record; used by the admin CLI and tests to seed data.
func (r *GormRecordRepository) Create(ctx context.Context, rec *domain.DeliveryRecord) error {
	if rec.Status == "" {
		rec.Status = domain.StatusUnset
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		observability.RecordStoreOperation(ctx, gormStoreName, "create", "error")
		return err
	}
	observability.RecordStoreOperation(ctx, gormStoreName, "create", "success")
	return nil
}

func (r *GormRecordRepository) patch(ctx context.Context, op, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.DeliveryRecord{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		observability.RecordStoreOperation(ctx, gormStoreName, op, "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordStoreOperation(ctx, gormStoreName, op, "not_found")
		return ErrRecordNotFound
	}
	observability.RecordStoreOperation(ctx, gormStoreName, op, "success")
	return nil
}
