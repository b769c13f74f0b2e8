package content

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gyoansoft/gyoan-backend/pkg/db/models"
	"github.com/gyoansoft/gyoan-backend/pkg/enums"
)

// ErrRowNotFound marks a lookup or counter update that matched no live row.
var ErrRowNotFound = errors.New("content row not found")

// Repository exposes content persistence operations. Soft-deleted rows are
// filtered with an explicit deleted_at predicate on every read.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a content repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Content{}).Where("deleted_at IS NULL")
}

// Create persists a content record.
func (r *Repository) Create(ctx context.Context, row *models.Content) (*models.Content, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// FindByID retrieves a live content record by ID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error) {
	var m models.Content
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRowNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Update persists all fields of an existing row.
func (r *Repository) Update(ctx context.Context, row *models.Content) (*models.Content, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ? AND deleted_at IS NULL", row.ID).
		Select("*").
		Omit("id", "created_at", "deleted_at").
		Updates(row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRowNotFound
	}
	return r.FindByID(ctx, row.ID)
}

// SoftDelete stamps deleted_at on a live row.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.live(ctx).
		Where("id = ?", id).
		UpdateColumn("deleted_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRowNotFound
	}
	return nil
}

// counterColumns is the closed set of counters IncrementCounter accepts.
var counterColumns = map[string]bool{
	"view_count":     true,
	"like_count":     true,
	"download_count": true,
}

// IncrementCounter bumps a counter column in a single UPDATE so concurrent
// increments never lose writes.
func (r *Repository) IncrementCounter(ctx context.Context, id uuid.UUID, column string) error {
	if !counterColumns[column] {
		return errors.New("unsupported counter column")
	}
	result := r.live(ctx).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRowNotFound
	}
	return nil
}

// List returns one page of rows plus the total match count for the query.
func (r *Repository) List(ctx context.Context, query *listQuery) ([]models.Content, int64, error) {
	scoped := r.applyFilters(r.live(ctx), query)

	var total int64
	if err := scoped.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Content
	err := scoped.
		Order(query.order).
		Limit(query.limit).
		Offset(query.offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *Repository) applyFilters(tx *gorm.DB, query *listQuery) *gorm.DB {
	if query.ownerID != nil {
		tx = tx.Where("user_id = ?", *query.ownerID)
	}
	if query.channelID != "" {
		tx = tx.Where("channel_id = ?", query.channelID)
	}
	if query.contentType != "" {
		tx = tx.Where("content_type = ?", query.contentType)
	}
	if query.folderPath != "" {
		tx = tx.Where("folder_path = ?", query.folderPath)
	}
	if query.keyword != "" {
		// keyword search is scoped to the keywords column; titles are not matched
		tx = tx.Where("keywords LIKE ?", "%"+query.keyword+"%")
	}
	if query.parentID != nil {
		tx = tx.Where("parent_content_id = ?", *query.parentID)
	}
	if query.supportOnly {
		tx = tx.Where("is_support_material = ?", true)
	}
	if query.publicOnly {
		tx = tx.Where("public_status = ?", enums.PublicStatusPublic)
	}
	return tx
}
