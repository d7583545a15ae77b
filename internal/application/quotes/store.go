package quotes

import (
	"context"
	"errors"
	"strings"
	"time"

	"stocksim-backend/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrQuoteNotFound = errors.New("Security not found")

// Store is the quote table. Any number of readers may run while the synchronizer writes.
type Store struct {
	DB *gorm.DB
}

// Get returns the quote for code.
func (s *Store) Get(ctx context.Context, code string) (*domain.Quote, error) {
	var q domain.Quote
	if err := s.DB.WithContext(ctx).Where("security_code = ?", code).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	return &q, nil
}

// List returns every quote ordered by code.
func (s *Store) List(ctx context.Context) ([]domain.Quote, error) {
	var out []domain.Quote
	if err := s.DB.WithContext(ctx).Order("security_code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Search matches keyword case-insensitively against code and display name.
func (s *Store) Search(ctx context.Context, keyword string) ([]domain.Quote, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.List(ctx)
	}
	like := "%" + strings.ToLower(keyword) + "%"
	var out []domain.Quote
	if err := s.DB.WithContext(ctx).
		Where("LOWER(security_code) LIKE ? OR LOWER(display_name) LIKE ?", like, like).
		Order("security_code ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert inserts q or overwrites name, price and change of the existing row.
func (s *Store) Upsert(ctx context.Context, q domain.Quote) error {
	if q.SecurityCode == "" {
		return errors.New("security_code is required")
	}
	if q.UpdatedAt.IsZero() {
		q.UpdatedAt = time.Now()
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "security_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "last_price", "change_percent", "updated_at"}),
	}).Create(&q).Error
}
