package content

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/gyoansoft/gyoan-backend/pkg/db/models"
	"github.com/gyoansoft/gyoan-backend/pkg/enums"
)

// Upload is an incoming file stream and its client-reported metadata.
type Upload struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// CreateInput models the payload required to register new content.
type CreateInput struct {
	Title               string `validate:"required,max=255"`
	Description         string
	ContentType         string `validate:"required,max=100"`
	SchoolLevel         string
	Grade               string
	Semester            string
	Subject             string
	AchievementStandard string

	ContentFormat string `validate:"required,oneof=attachment file url"`
	ContentURL    string

	ParentContentID   *uuid.UUID
	IsSupportMaterial bool

	ThumbnailPath  string
	Keywords       string
	CopyrightType  string
	UsageCondition string

	PublicStatus string `validate:"omitempty,oneof=public private"`
	StorageType  string
	ChannelID    string
	FolderPath   string

	File      *Upload
	Thumbnail *Upload
}

// UpdateInput carries the full replacement metadata set and mirrors the
// create payload. Updates are not partial: every descriptive field, the
// format, and the hierarchy flags are overwritten from this struct, so
// callers must resupply values they want to keep. Stored file and thumbnail
// paths are the exception; they survive unless a new upload or an explicit
// path replaces them.
type UpdateInput struct {
	Title               string `validate:"required,max=255"`
	Description         string
	ContentType         string `validate:"required,max=100"`
	SchoolLevel         string
	Grade               string
	Semester            string
	Subject             string
	AchievementStandard string

	ContentFormat string `validate:"required,oneof=attachment file url"`
	ContentURL    string

	ParentContentID   *uuid.UUID
	IsSupportMaterial bool

	ThumbnailPath  string
	Keywords       string
	CopyrightType  string
	UsageCondition string

	PublicStatus string `validate:"omitempty,oneof=public private"`
	StorageType  string
	ChannelID    string
	FolderPath   string

	File      *Upload
	Thumbnail *Upload
}

// Detail is the full representation returned for a single content row.
type Detail struct {
	ID                  uuid.UUID           `json:"id"`
	UserID              uuid.UUID           `json:"user_id"`
	Title               string              `json:"title"`
	Description         *string             `json:"description,omitempty"`
	ContentType         *string             `json:"content_type,omitempty"`
	SchoolLevel         *string             `json:"school_level,omitempty"`
	Grade               *string             `json:"grade,omitempty"`
	Semester            *string             `json:"semester,omitempty"`
	Subject             *string             `json:"subject,omitempty"`
	AchievementStandard *string             `json:"achievement_standard,omitempty"`
	ContentFormat       enums.ContentFormat `json:"content_format"`
	ContentURL          *string             `json:"content_url,omitempty"`
	FilePath            *string             `json:"file_path,omitempty"`
	FileName            *string             `json:"file_name,omitempty"`
	FileSize            *int64              `json:"file_size,omitempty"`
	FileExtension       *string             `json:"file_extension,omitempty"`
	ParentContentID     *uuid.UUID          `json:"parent_content_id,omitempty"`
	IsSupportMaterial   bool                `json:"is_support_material"`
	ThumbnailPath       *string             `json:"thumbnail_path,omitempty"`
	Keywords            *string             `json:"keywords,omitempty"`
	CopyrightType       *string             `json:"copyright_type,omitempty"`
	UsageCondition      *string             `json:"usage_condition,omitempty"`
	PublicStatus        enums.PublicStatus  `json:"public_status"`
	StorageType         *string             `json:"storage_type,omitempty"`
	ChannelID           *string             `json:"channel_id,omitempty"`
	FolderPath          *string             `json:"folder_path,omitempty"`
	ViewCount           int64               `json:"view_count"`
	LikeCount           int64               `json:"like_count"`
	DownloadCount       int64               `json:"download_count"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

func toDetail(m *models.Content) *Detail {
	return &Detail{
		ID:                  m.ID,
		UserID:              m.UserID,
		Title:               m.Title,
		Description:         m.Description,
		ContentType:         m.ContentType,
		SchoolLevel:         m.SchoolLevel,
		Grade:               m.Grade,
		Semester:            m.Semester,
		Subject:             m.Subject,
		AchievementStandard: m.AchievementStandard,
		ContentFormat:       m.ContentFormat,
		ContentURL:          m.ContentURL,
		FilePath:            m.FilePath,
		FileName:            m.FileName,
		FileSize:            m.FileSize,
		FileExtension:       m.FileExtension,
		ParentContentID:     m.ParentContentID,
		IsSupportMaterial:   m.IsSupportMaterial,
		ThumbnailPath:       m.ThumbnailPath,
		Keywords:            m.Keywords,
		CopyrightType:       m.CopyrightType,
		UsageCondition:      m.UsageCondition,
		PublicStatus:        m.PublicStatus,
		StorageType:         m.StorageType,
		ChannelID:           m.ChannelID,
		FolderPath:          m.FolderPath,
		ViewCount:           m.ViewCount,
		LikeCount:           m.LikeCount,
		DownloadCount:       m.DownloadCount,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
