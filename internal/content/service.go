package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyoansoft/gyoan-backend/internal/querycache"
	"github.com/gyoansoft/gyoan-backend/pkg/db/models"
	"github.com/gyoansoft/gyoan-backend/pkg/enums"
	pkgerrors "github.com/gyoansoft/gyoan-backend/pkg/errors"
	"github.com/gyoansoft/gyoan-backend/pkg/logger"
	"github.com/gyoansoft/gyoan-backend/pkg/metrics"
	"github.com/gyoansoft/gyoan-backend/pkg/pagination"
	"github.com/gyoansoft/gyoan-backend/pkg/storage/local"
)

// blobCategory is the top-level directory content payloads are stored under;
// thumbnail uploads get their own bucket. The singular names are part of the
// persisted path convention and must not change.
const (
	blobCategory  = "content"
	thumbCategory = "thumbnail"

	thumbPathPrefix = "/" + thumbCategory + "/"
)

const cacheNamespace = "contents"

type contentRepository interface {
	Create(ctx context.Context, row *models.Content) (*models.Content, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Content, error)
	Update(ctx context.Context, row *models.Content) (*models.Content, error)
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrementCounter(ctx context.Context, id uuid.UUID, column string) error
	List(ctx context.Context, query *listQuery) ([]models.Content, int64, error)
}

type blobStore interface {
	Save(ctx context.Context, category, ownerID, fileName string, r io.Reader) (*local.Blob, error)
	Delete(ctx context.Context, relPath string) error
}

// Service exposes the content lifecycle and its query surface.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*Detail, error)
	Update(ctx context.Context, ownerID, contentID uuid.UUID, input UpdateInput) (*Detail, error)
	Get(ctx context.Context, contentID uuid.UUID) (*Detail, error)
	Delete(ctx context.Context, ownerID, contentID uuid.UUID) error

	IncreaseLike(ctx context.Context, contentID uuid.UUID) error
	IncreaseDownload(ctx context.Context, contentID uuid.UUID) error

	ListByOwner(ctx context.Context, ownerID uuid.UUID, page pagination.Params) (*ListResult, error)
	ListPublic(ctx context.Context, page pagination.Params) (*ListResult, error)
	ListByChannel(ctx context.Context, channelID string, page pagination.Params) (*ListResult, error)
	ListByType(ctx context.Context, contentType string, page pagination.Params) (*ListResult, error)
	ListByOwnerAndFolder(ctx context.Context, ownerID uuid.UUID, folderPath string, page pagination.Params) (*ListResult, error)
	SearchKeyword(ctx context.Context, keyword string, page pagination.Params) (*ListResult, error)
	SupportMaterials(ctx context.Context, parentID uuid.UUID, page pagination.Params) (*ListResult, error)
	Popular(ctx context.Context, size int) (*ListResult, error)
}

type service struct {
	repo           contentRepository
	blobs          blobStore
	cache          querycache.Cache
	logg           *logger.Logger
	metrics        *metrics.ContentMetrics
	maxUploadBytes int64
	now            func() time.Time
}

// NewService constructs a content service backed by the provided repository,
// blob store, and query cache.
func NewService(repo contentRepository, blobs blobStore, cache querycache.Cache, logg *logger.Logger, m *metrics.ContentMetrics, maxUploadMB int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("content repository required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if cache == nil {
		return nil, fmt.Errorf("query cache required")
	}
	if maxUploadMB <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	return &service{
		repo:           repo,
		blobs:          blobs,
		cache:          cache,
		logg:           logg,
		metrics:        m,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		now:            time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*Detail, error) {
	defer s.observe("create", time.Now())
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_type is required")
	}
	format, err := enums.ParseContentFormat(strings.TrimSpace(input.ContentFormat))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content format")
	}

	status := enums.PublicStatusPublic
	if input.PublicStatus != "" {
		parsed, err := enums.ParsePublicStatus(input.PublicStatus)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid public status")
		}
		status = parsed
	}

	row := &models.Content{
		UserID:              ownerID,
		Title:               title,
		Description:         optional(strings.TrimSpace(input.Description)),
		ContentType:         &contentType,
		SchoolLevel:         optional(strings.TrimSpace(input.SchoolLevel)),
		Grade:               optional(strings.TrimSpace(input.Grade)),
		Semester:            optional(strings.TrimSpace(input.Semester)),
		Subject:             optional(strings.TrimSpace(input.Subject)),
		AchievementStandard: optional(strings.TrimSpace(input.AchievementStandard)),
		ContentFormat:       format,
		ParentContentID:     input.ParentContentID,
		IsSupportMaterial:   input.IsSupportMaterial,
		Keywords:            optional(strings.TrimSpace(input.Keywords)),
		CopyrightType:       optional(strings.TrimSpace(input.CopyrightType)),
		UsageCondition:      optional(strings.TrimSpace(input.UsageCondition)),
		PublicStatus:        status,
		StorageType:         optional(strings.TrimSpace(input.StorageType)),
		ChannelID:           optional(strings.TrimSpace(input.ChannelID)),
		FolderPath:          optional(strings.TrimSpace(input.FolderPath)),
	}

	if format == enums.ContentFormatURL {
		url := strings.TrimSpace(input.ContentURL)
		if url == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_url is required for url format")
		}
		row.ContentURL = &url
	}

	var savedPaths []string
	if input.File != nil {
		if format == enums.ContentFormatURL {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "url contents do not accept file uploads")
		}
		if err := s.validateUpload(input.File); err != nil {
			return nil, err
		}
		blob, err := s.blobs.Save(ctx, blobCategory, ownerID.String(), input.File.Name, input.File.Reader)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store content blob")
		}
		savedPaths = append(savedPaths, blob.Path)
		applyBlob(row, blob)
		if row.StorageType == nil {
			storageType := "local"
			row.StorageType = &storageType
		}
	}

	thumbnail := strings.TrimSpace(input.ThumbnailPath)
	if input.Thumbnail != nil {
		if err := s.validateUpload(input.Thumbnail); err != nil {
			s.cleanupBlobs(ctx, savedPaths)
			return nil, err
		}
		blob, err := s.blobs.Save(ctx, thumbCategory, ownerID.String(), input.Thumbnail.Name, input.Thumbnail.Reader)
		if err != nil {
			s.cleanupBlobs(ctx, savedPaths)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store thumbnail blob")
		}
		savedPaths = append(savedPaths, blob.Path)
		thumbnail = blob.Path
	}
	if thumbnail == "" {
		thumbnail = DefaultThumbnail(input.Subject)
	}
	row.ThumbnailPath = &thumbnail

	created, err := s.repo.Create(ctx, row)
	if err != nil {
		s.cleanupBlobs(ctx, savedPaths)
		s.fail("create")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist content row")
	}

	s.evict(ctx)
	s.ok("create")
	return toDetail(created), nil
}

func (s *service) Update(ctx context.Context, ownerID, contentID uuid.UUID, input UpdateInput) (*Detail, error) {
	defer s.observe("update", time.Now())
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	row, err := s.find(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if !IsOwner(row, ownerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not the content owner")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_type is required")
	}
	format, err := enums.ParseContentFormat(strings.TrimSpace(input.ContentFormat))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content format")
	}
	status := enums.PublicStatusPublic
	if input.PublicStatus != "" {
		parsed, err := enums.ParsePublicStatus(input.PublicStatus)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid public status")
		}
		status = parsed
	}

	// Updates are whole-metadata replacements: descriptive fields, format and
	// hierarchy are all taken from the input, absent values clear the stored
	// ones. Only the persisted file and thumbnail paths survive unreplaced.
	row.Title = title
	row.ContentType = &contentType
	row.Description = optional(strings.TrimSpace(input.Description))
	row.SchoolLevel = optional(strings.TrimSpace(input.SchoolLevel))
	row.Grade = optional(strings.TrimSpace(input.Grade))
	row.Semester = optional(strings.TrimSpace(input.Semester))
	row.Subject = optional(strings.TrimSpace(input.Subject))
	row.AchievementStandard = optional(strings.TrimSpace(input.AchievementStandard))
	row.Keywords = optional(strings.TrimSpace(input.Keywords))
	row.CopyrightType = optional(strings.TrimSpace(input.CopyrightType))
	row.UsageCondition = optional(strings.TrimSpace(input.UsageCondition))
	row.ChannelID = optional(strings.TrimSpace(input.ChannelID))
	row.FolderPath = optional(strings.TrimSpace(input.FolderPath))
	row.ContentFormat = format
	row.ParentContentID = input.ParentContentID
	row.IsSupportMaterial = input.IsSupportMaterial
	row.StorageType = optional(strings.TrimSpace(input.StorageType))
	row.PublicStatus = status

	if format == enums.ContentFormatURL {
		url := strings.TrimSpace(input.ContentURL)
		if url == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "content_url is required for url format")
		}
		row.ContentURL = &url
	} else {
		row.ContentURL = optional(strings.TrimSpace(input.ContentURL))
	}

	if input.File != nil {
		if format == enums.ContentFormatURL {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "url contents do not accept file uploads")
		}
		if err := s.validateUpload(input.File); err != nil {
			return nil, err
		}
		// old payload goes first; a failed cleanup never blocks the replacement
		if row.FilePath != nil {
			s.removeBlob(ctx, *row.FilePath)
		}
		blob, err := s.blobs.Save(ctx, blobCategory, ownerID.String(), input.File.Name, input.File.Reader)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store replacement blob")
		}
		applyBlob(row, blob)
		if row.StorageType == nil {
			storageType := "local"
			row.StorageType = &storageType
		}
	}

	thumbnail := strings.TrimSpace(input.ThumbnailPath)
	switch {
	case input.Thumbnail != nil:
		if err := s.validateUpload(input.Thumbnail); err != nil {
			return nil, err
		}
		if row.ThumbnailPath != nil && strings.HasPrefix(*row.ThumbnailPath, thumbPathPrefix) {
			s.removeBlob(ctx, *row.ThumbnailPath)
		}
		blob, err := s.blobs.Save(ctx, thumbCategory, ownerID.String(), input.Thumbnail.Name, input.Thumbnail.Reader)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store thumbnail blob")
		}
		thumbnail = blob.Path
	case thumbnail == "" && row.ThumbnailPath != nil && *row.ThumbnailPath != "":
		// nothing resupplied, the stored thumbnail stays
		thumbnail = *row.ThumbnailPath
	}
	if thumbnail == "" {
		subject := ""
		if row.Subject != nil {
			subject = *row.Subject
		}
		thumbnail = DefaultThumbnail(subject)
	}
	row.ThumbnailPath = &thumbnail

	updated, err := s.repo.Update(ctx, row)
	if err != nil {
		s.fail("update")
		if err == ErrRowNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content row")
	}

	s.evict(ctx)
	s.ok("update")
	return toDetail(updated), nil
}

// Get returns a single row after bumping its view counter. The increment is
// a counter write, so the query cache is left alone.
func (s *service) Get(ctx context.Context, contentID uuid.UUID) (*Detail, error) {
	defer s.observe("get", time.Now())
	if err := s.increment(ctx, contentID, "view_count"); err != nil {
		return nil, err
	}
	row, err := s.find(ctx, contentID)
	if err != nil {
		return nil, err
	}
	s.ok("get")
	return toDetail(row), nil
}

func (s *service) Delete(ctx context.Context, ownerID, contentID uuid.UUID) error {
	defer s.observe("delete", time.Now())
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}

	row, err := s.find(ctx, contentID)
	if err != nil {
		return err
	}
	if !IsOwner(row, ownerID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not the content owner")
	}

	if err := s.repo.SoftDelete(ctx, contentID, s.now().UTC()); err != nil {
		s.fail("delete")
		if err == ErrRowNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "soft delete content row")
	}

	s.evict(ctx)
	s.ok("delete")
	return nil
}

func (s *service) IncreaseLike(ctx context.Context, contentID uuid.UUID) error {
	defer s.observe("like", time.Now())
	if err := s.increment(ctx, contentID, "like_count"); err != nil {
		return err
	}
	s.ok("like")
	return nil
}

func (s *service) IncreaseDownload(ctx context.Context, contentID uuid.UUID) error {
	defer s.observe("download", time.Now())
	if err := s.increment(ctx, contentID, "download_count"); err != nil {
		return err
	}
	s.ok("download")
	return nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID, page pagination.Params) (*ListResult, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	return s.list(ctx, ListParams{OwnerID: &ownerID, Page: page})
}

func (s *service) ListPublic(ctx context.Context, page pagination.Params) (*ListResult, error) {
	return s.list(ctx, ListParams{PublicOnly: true, Page: page})
}

func (s *service) ListByChannel(ctx context.Context, channelID string, page pagination.Params) (*ListResult, error) {
	if strings.TrimSpace(channelID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "channel id required")
	}
	return s.list(ctx, ListParams{ChannelID: channelID, PublicOnly: true, Page: page})
}

func (s *service) ListByType(ctx context.Context, contentType string, page pagination.Params) (*ListResult, error) {
	if strings.TrimSpace(contentType) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content type required")
	}
	return s.list(ctx, ListParams{ContentType: contentType, PublicOnly: true, Page: page})
}

func (s *service) ListByOwnerAndFolder(ctx context.Context, ownerID uuid.UUID, folderPath string, page pagination.Params) (*ListResult, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if strings.TrimSpace(folderPath) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "folder path required")
	}
	return s.list(ctx, ListParams{OwnerID: &ownerID, FolderPath: folderPath, Page: page})
}

func (s *service) SearchKeyword(ctx context.Context, keyword string, page pagination.Params) (*ListResult, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "keyword required")
	}
	return s.list(ctx, ListParams{Keyword: keyword, PublicOnly: true, Page: page})
}

// SupportMaterials lists the children attached to a parent row. It skips the
// query cache: parent deletion does not cascade, so a cached page could
// otherwise outlive its parent in confusing ways.
func (s *service) SupportMaterials(ctx context.Context, parentID uuid.UUID, page pagination.Params) (*ListResult, error) {
	if parentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parent content id required")
	}

	defer s.observe("list", time.Now())
	query, err := buildListQuery(ListParams{ParentContentID: &parentID, SupportOnly: true, Page: page})
	if err != nil {
		return nil, err
	}

	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		s.fail("list")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list support materials")
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	s.ok("list")
	return &ListResult{
		Items: items,
		Total: total,
		Page:  pagination.NormalizePage(page.Page),
		Size:  query.limit,
	}, nil
}

// Popular returns the most viewed public rows.
func (s *service) Popular(ctx context.Context, size int) (*ListResult, error) {
	return s.list(ctx, ListParams{
		PublicOnly: true,
		Page: pagination.Params{
			Page: 1,
			Size: size,
			Sort: "viewCount",
			Desc: true,
		},
	})
}

func (s *service) list(ctx context.Context, params ListParams) (*ListResult, error) {
	defer s.observe("list", time.Now())
	query, err := buildListQuery(params)
	if err != nil {
		return nil, err
	}

	// the generation observed here scopes the repopulating Set below, so a
	// write raced by an eviction lands in the dead generation
	key := query.cacheKey()
	cached, ok, gen, cacheErr := s.cache.Get(ctx, key)
	if cacheErr != nil {
		s.warn(ctx, "query cache read failed", cacheErr)
	} else if ok {
		var result ListResult
		if decodeErr := json.Unmarshal(cached, &result); decodeErr == nil {
			s.metrics.IncCacheHit(cacheNamespace)
			return &result, nil
		} else {
			s.warn(ctx, "query cache entry undecodable", decodeErr)
		}
	}
	s.metrics.IncCacheMiss(cacheNamespace)

	rows, total, err := s.repo.List(ctx, query)
	if err != nil {
		s.fail("list")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contents")
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	result := &ListResult{
		Items: items,
		Total: total,
		Page:  pagination.NormalizePage(params.Page.Page),
		Size:  query.limit,
	}

	if encoded, err := json.Marshal(result); err == nil {
		if cacheErr := s.cache.Set(ctx, key, encoded, gen); cacheErr != nil {
			s.warn(ctx, "query cache write failed", cacheErr)
		}
	}

	s.ok("list")
	return result, nil
}

func (s *service) find(ctx context.Context, contentID uuid.UUID) (*models.Content, error) {
	if contentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content id required")
	}
	row, err := s.repo.FindByID(ctx, contentID)
	if err != nil {
		if err == ErrRowNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load content row")
	}
	return row, nil
}

func (s *service) increment(ctx context.Context, contentID uuid.UUID, column string) error {
	if contentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "content id required")
	}
	if err := s.repo.IncrementCounter(ctx, contentID, column); err != nil {
		if err == ErrRowNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "content not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment "+column)
	}
	return nil
}

func (s *service) validateUpload(file *Upload) error {
	if strings.TrimSpace(file.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}
	if file.Reader == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file body is required")
	}
	if file.Size <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file size must be positive")
	}
	if file.Size > s.maxUploadBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file size must be at most %d bytes", s.maxUploadBytes))
	}
	return nil
}

// evict clears the whole query cache. Failures degrade to stale reads until
// TTL, so they are logged rather than returned.
func (s *service) evict(ctx context.Context) {
	if err := s.cache.EvictAll(ctx); err != nil {
		s.warn(ctx, "query cache eviction failed", err)
	}
}

func (s *service) removeBlob(ctx context.Context, relPath string) {
	if err := s.blobs.Delete(ctx, relPath); err != nil {
		s.warn(ctx, "blob cleanup failed", err)
	}
}

func (s *service) cleanupBlobs(ctx context.Context, paths []string) {
	for _, path := range paths {
		s.removeBlob(ctx, path)
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), msg)
}

func (s *service) observe(op string, start time.Time) {
	s.metrics.ObserveDuration(op, time.Since(start))
}

func (s *service) ok(op string) {
	s.metrics.IncSuccess(op)
}

func (s *service) fail(op string) {
	s.metrics.IncFailure(op)
}

func applyBlob(row *models.Content, blob *local.Blob) {
	row.FilePath = &blob.Path
	row.FileName = &blob.Name
	row.FileSize = &blob.Size
	ext := blob.Extension
	row.FileExtension = &ext
}
