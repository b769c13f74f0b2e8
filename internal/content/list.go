package content

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyoansoft/gyoan-backend/pkg/db/models"
	"github.com/gyoansoft/gyoan-backend/pkg/enums"
	pkgerrors "github.com/gyoansoft/gyoan-backend/pkg/errors"
	"github.com/gyoansoft/gyoan-backend/pkg/pagination"
)

// ListParams configures content listing filters and pagination.
type ListParams struct {
	OwnerID         *uuid.UUID
	ChannelID       string
	ContentType     string
	FolderPath      string
	Keyword         string
	ParentContentID *uuid.UUID
	SupportOnly     bool
	PublicOnly      bool

	Page pagination.Params
}

// ListResult returns one page of content rows plus the total match count.
type ListResult struct {
	Items []ListItem `json:"items"`
	Total int64      `json:"total"`
	Page  int        `json:"page"`
	Size  int        `json:"size"`
}

// ListItem represents a content row in list responses.
type ListItem struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	Title         string              `json:"title"`
	ContentType   *string             `json:"content_type,omitempty"`
	Subject       *string             `json:"subject,omitempty"`
	ContentFormat enums.ContentFormat `json:"content_format"`
	ThumbnailPath *string             `json:"thumbnail_path,omitempty"`
	PublicStatus  enums.PublicStatus  `json:"public_status"`
	ChannelID     *string             `json:"channel_id,omitempty"`
	FolderPath    *string             `json:"folder_path,omitempty"`
	ViewCount     int64               `json:"view_count"`
	LikeCount     int64               `json:"like_count"`
	DownloadCount int64               `json:"download_count"`
	CreatedAt     time.Time           `json:"created_at"`
}

// listQuery is the repository-facing form of ListParams with validated
// pagination already applied.
type listQuery struct {
	ownerID     *uuid.UUID
	channelID   string
	contentType string
	folderPath  string
	keyword     string
	parentID    *uuid.UUID
	supportOnly bool
	publicOnly  bool

	limit  int
	offset int
	order  string
}

func buildListQuery(params ListParams) (*listQuery, error) {
	order, err := params.Page.OrderClause()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort field").
			WithDetails(map[string]any{"allowed": pagination.SortFields()})
	}
	return &listQuery{
		ownerID:     params.OwnerID,
		channelID:   strings.TrimSpace(params.ChannelID),
		contentType: strings.TrimSpace(params.ContentType),
		folderPath:  strings.TrimSpace(params.FolderPath),
		keyword:     strings.TrimSpace(params.Keyword),
		parentID:    params.ParentContentID,
		supportOnly: params.SupportOnly,
		publicOnly:  params.PublicOnly,
		limit:       params.Page.Limit(),
		offset:      params.Page.Offset(),
		order:       order,
	}, nil
}

// cacheKey renders the query as a stable string, so identical queries share
// a cache entry.
func (q *listQuery) cacheKey() string {
	owner := ""
	if q.ownerID != nil {
		owner = q.ownerID.String()
	}
	parent := ""
	if q.parentID != nil {
		parent = q.parentID.String()
	}
	return fmt.Sprintf("list|o=%s|ch=%s|ct=%s|fp=%s|kw=%s|pa=%s|sup=%t|pub=%t|l=%d|of=%d|ord=%s",
		owner, q.channelID, q.contentType, q.folderPath, q.keyword, parent,
		q.supportOnly, q.publicOnly, q.limit, q.offset, q.order)
}

func toListItem(m models.Content) ListItem {
	return ListItem{
		ID:            m.ID,
		UserID:        m.UserID,
		Title:         m.Title,
		ContentType:   m.ContentType,
		Subject:       m.Subject,
		ContentFormat: m.ContentFormat,
		ThumbnailPath: m.ThumbnailPath,
		PublicStatus:  m.PublicStatus,
		ChannelID:     m.ChannelID,
		FolderPath:    m.FolderPath,
		ViewCount:     m.ViewCount,
		LikeCount:     m.LikeCount,
		DownloadCount: m.DownloadCount,
		CreatedAt:     m.CreatedAt,
	}
}
