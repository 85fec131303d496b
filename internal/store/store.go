// Package store is the gorm-backed persistence layer for classification
// records, drafts, and the trusted-sender list.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/PierreExeter/gmail-agent/internal/model"
	"github.com/PierreExeter/gmail-agent/internal/domain/triage"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

// Open connects to MySQL and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := model.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing gorm handle. Used by tests and the DI container.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) SaveClassification(ctx context.Context, rec *model.ClassificationRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save classification: %w", err)
	}
	return nil
}

func (s *Store) ListClassifications(ctx context.Context, limit int) ([]model.ClassificationRecord, error) {
	var recs []model.ClassificationRecord
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	return recs, nil
}

func (s *Store) CreateDraft(ctx context.Context, rec *model.DraftRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*model.DraftRecord, error) {
	var rec model.DraftRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	return &rec, nil
}

func (s *Store) ListDrafts(ctx context.Context, status string) ([]model.DraftRecord, error) {
	var recs []model.DraftRecord
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return recs, nil
}

// TransitionDraft moves a draft along its status machine, enforcing the
// legal edges. newBody is applied only on the transition to EDITED.
func (s *Store) TransitionDraft(ctx context.Context, id string, next triage.DraftStatus, newBody string) (*model.DraftRecord, error) {
	rec, err := s.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}

	current := triage.DraftStatus(rec.Status)
	if !current.CanTransition(next) {
		return nil, fmt.Errorf("illegal draft transition %s -> %s", current, next)
	}

	updates := map[string]any{"status": string(next)}
	if next == triage.DraftEdited {
		updates["body"] = newBody
	}

	if err := s.db.WithContext(ctx).Model(rec).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update draft: %w", err)
	}

	rec.Status = string(next)
	if next == triage.DraftEdited {
		rec.Body = newBody
	}
	return rec, nil
}

func (s *Store) MarkDraftSent(ctx context.Context, id, sentMessageID string) error {
	err := s.db.WithContext(ctx).
		Model(&model.DraftRecord{}).
		Where("id = ?", id).
		Update("sent_message_id", sentMessageID).Error
	if err != nil {
		return fmt.Errorf("failed to mark draft sent: %w", err)
	}
	return nil
}

func (s *Store) IsTrustedSender(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.TrustedSender{}).
		Where("email = ?", strings.ToLower(email)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check trusted sender: %w", err)
	}
	return count > 0, nil
}

func (s *Store) ListTrustedSenders(ctx context.Context) ([]string, error) {
	var senders []model.TrustedSender
	if err := s.db.WithContext(ctx).Find(&senders).Error; err != nil {
		return nil, fmt.Errorf("failed to list trusted senders: %w", err)
	}
	emails := make([]string, 0, len(senders))
	for _, ts := range senders {
		emails = append(emails, ts.Email)
	}
	return emails, nil
}

func (s *Store) AddTrustedSender(ctx context.Context, email, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("trusted sender email is empty")
	}

	exists, err := s.IsTrustedSender(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	rec := &model.TrustedSender{Email: email, Name: name}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to add trusted sender: %w", err)
	}
	return nil
}
