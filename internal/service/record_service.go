package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wastevision-service/internal/domain/account"
	"wastevision-service/internal/storage"
)

type RecordService struct {
	records   account.RecordStore
	artifacts *storage.ArtifactStore
	now       func() time.Time
	log       zerolog.Logger
}

func NewRecordService(records account.RecordStore, artifacts *storage.ArtifactStore, log zerolog.Logger) *RecordService {
	return &RecordService{
		records:   records,
		artifacts: artifacts,
		now:       time.Now,
		log:       log,
	}
}

func (s *RecordService) Save(ctx context.Context, userID string, payload account.RecordPayload) (*account.Record, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id", ErrInvalidInput)
	}
	if len(payload.ImageData) == 0 {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}

	now := s.now()
	imageFile, err := s.artifacts.Save(payload.ImageFilename, payload.ImageData, now)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	var detectedFile string
	if payload.DetectedImageBase64 != "" {
		detectedFile, err = s.artifacts.SaveDataURI("detected_"+uuid.NewString()+".png", payload.DetectedImageBase64, now)
		if err != nil {
			// The annotated copy is optional; keep the record without it.
			s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to store detected image")
		}
	}

	record := &account.Record{
		UserID:            uid,
		Items:             []account.RecordItem{recordItem(payload)},
		ImageFile:         imageFile,
		DetectedImageFile: detectedFile,
		IsSaved:           true,
		CreatedAt:         now.UTC(),
	}
	if err := s.records.Create(ctx, record); err != nil {
		s.removeArtifacts(imageFile, detectedFile)
		return nil, fmt.Errorf("failed to save record: %w", err)
	}

	s.log.Info().
		Str("user_id", userID).
		Str("record_id", record.ID.String()).
		Str("type", record.Items[0].Type).
		Msg("record saved")
	return record, nil
}

func recordItem(p account.RecordPayload) account.RecordItem {
	item := account.RecordItem{
		Item:           p.WasteType,
		Type:           p.Category,
		Confidence:     normalizeConfidence(p.Confidence),
		Recyclable:     p.Recyclable,
		DisposalMethod: p.DisposalMethod,
		Description:    p.Description,
	}
	if item.Item == "" {
		item.Item = "Unknown"
	}
	if item.Type == "" {
		item.Type = "Unknown"
	}
	return item
}

// normalizeConfidence accepts either a fraction or a percentage.
func normalizeConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return v / 100
	}
	return v
}

func (s *RecordService) List(ctx context.Context, userID string) ([]account.Record, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id", ErrInvalidInput)
	}
	records, err := s.records.ListByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

func (s *RecordService) Get(ctx context.Context, userID, recordID string) (*account.Record, error) {
	uid, rid, err := parseIDs(userID, recordID)
	if err != nil {
		return nil, err
	}
	record, err := s.records.Get(ctx, uid, rid)
	if err != nil {
		if errors.Is(err, account.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: record not found", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return record, nil
}

func (s *RecordService) Delete(ctx context.Context, userID, recordID string) error {
	record, err := s.Get(ctx, userID, recordID)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, record.UserID, record.ID); err != nil {
		if errors.Is(err, account.ErrRecordNotFound) {
			return fmt.Errorf("%w: record not found", ErrNotFound)
		}
		return fmt.Errorf("failed to delete record: %w", err)
	}

	s.removeArtifacts(record.ImageFile, record.DetectedImageFile)
	return nil
}

func (s *RecordService) removeArtifacts(names ...string) {
	for _, name := range names {
		if err := s.artifacts.Remove(name); err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("failed to remove record artifact")
		}
	}
}

// Statistics aggregates the user's records by item category.
func (s *RecordService) Statistics(ctx context.Context, userID string) (*account.Statistics, error) {
	records, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &account.Statistics{
		TotalRecords: int64(len(records)),
		ByCategory:   map[string]int64{},
	}
	var sum float64
	var items int
	for _, r := range records {
		for _, it := range r.Items {
			stats.ByCategory[it.Type]++
			sum += it.Confidence
			items++
		}
	}
	if items > 0 {
		stats.AverageConfidence = math.Round(sum/float64(items)*10000) / 10000
	}
	return stats, nil
}

func parseIDs(userID, recordID string) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad user id", ErrInvalidInput)
	}
	rid, err := uuid.Parse(recordID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: bad record id", ErrInvalidInput)
	}
	return uid, rid, nil
}
