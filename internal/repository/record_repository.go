package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"wastevision-service/internal/domain/account"
)

type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

type WasteRecord struct {
	ID                uuid.UUID                               `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID                               `gorm:"type:uuid;not null;index"`
	Items             datatypes.JSONSlice[account.RecordItem] `gorm:"type:jsonb"`
	ImageFile         string                                  `gorm:"not null"`
	DetectedImageFile *string
	IsSaved           bool
	CreatedAt         time.Time
}

func (WasteRecord) TableName() string {
	return "waste_records"
}

func (r *RecordRepository) Create(ctx context.Context, record *account.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	row := WasteRecord{
		ID:        record.ID,
		UserID:    record.UserID,
		Items:     datatypes.NewJSONSlice(record.Items),
		ImageFile: record.ImageFile,
		IsSaved:   record.IsSaved,
		CreatedAt: record.CreatedAt,
	}
	if record.DetectedImageFile != "" {
		row.DetectedImageFile = &record.DetectedImageFile
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
		record.CreatedAt = row.CreatedAt
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *RecordRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]account.Record, error) {
	var rows []WasteRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]account.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}

func (r *RecordRepository) Get(ctx context.Context, userID, id uuid.UUID) (*account.Record, error) {
	var row WasteRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, account.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := row.toDomain()
	return &rec, nil
}

func (r *RecordRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&WasteRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return account.ErrRecordNotFound
	}
	return nil
}

func (w WasteRecord) toDomain() account.Record {
	rec := account.Record{
		ID:        w.ID,
		UserID:    w.UserID,
		Items:     []account.RecordItem(w.Items),
		ImageFile: w.ImageFile,
		IsSaved:   w.IsSaved,
		CreatedAt: w.CreatedAt,
	}
	if rec.Items == nil {
		rec.Items = []account.RecordItem{}
	}
	if w.DetectedImageFile != nil {
		rec.DetectedImageFile = *w.DetectedImageFile
	}
	return rec
}

var _ account.RecordStore = (*RecordRepository)(nil)
