package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gyoansoft/gyoan-backend/pkg/enums"
)

// Content is a single lifecycle-managed teaching resource and its blob metadata.
type Content struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Title       string    `gorm:"column:title;not null"`
	Description *string   `gorm:"column:description"`

	ContentType         *string `gorm:"column:content_type"`
	SchoolLevel         *string `gorm:"column:school_level"`
	Grade               *string `gorm:"column:grade"`
	Semester            *string `gorm:"column:semester"`
	Subject             *string `gorm:"column:subject"`
	AchievementStandard *string `gorm:"column:achievement_standard"`

	ContentFormat enums.ContentFormat `gorm:"column:content_format;not null;default:attachment"`
	ContentURL    *string             `gorm:"column:content_url"`

	FilePath      *string `gorm:"column:file_path"`
	FileName      *string `gorm:"column:file_name"`
	FileSize      *int64  `gorm:"column:file_size"`
	FileExtension *string `gorm:"column:file_extension"`

	ParentContentID   *uuid.UUID `gorm:"column:parent_content_id;type:uuid"`
	IsSupportMaterial bool       `gorm:"column:is_support_material;not null;default:false"`

	ThumbnailPath  *string `gorm:"column:thumbnail_path"`
	Keywords       *string `gorm:"column:keywords"`
	CopyrightType  *string `gorm:"column:copyright_type"`
	UsageCondition *string `gorm:"column:usage_condition"`

	PublicStatus enums.PublicStatus `gorm:"column:public_status;not null;default:public"`
	StorageType  *string            `gorm:"column:storage_type"`
	ChannelID    *string            `gorm:"column:channel_id;index"`
	FolderPath   *string            `gorm:"column:folder_path"`

	ViewCount     int64 `gorm:"column:view_count;not null;default:0"`
	LikeCount     int64 `gorm:"column:like_count;not null;default:0"`
	DownloadCount int64 `gorm:"column:download_count;not null;default:0"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt *time.Time `gorm:"column:deleted_at;index"`
}

// TableName pins the table name so GORM does not pluralize differently
// across drivers.
func (Content) TableName() string {
	return "contents"
}
