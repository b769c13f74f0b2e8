package content

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/gyoansoft/gyoan-backend/internal/querycache"
	"github.com/gyoansoft/gyoan-backend/pkg/db/models"
	"github.com/gyoansoft/gyoan-backend/pkg/enums"
	pkgerrors "github.com/gyoansoft/gyoan-backend/pkg/errors"
	"github.com/gyoansoft/gyoan-backend/pkg/metrics"
	"github.com/gyoansoft/gyoan-backend/pkg/pagination"
	"github.com/gyoansoft/gyoan-backend/pkg/storage/local"
)

type stubRepo struct {
	rows map[uuid.UUID]*models.Content

	listRows  []models.Content
	listTotal int64
	listCalls int
	listErr   error

	increments []string
	createErr  error
}

func newStubRepo() *stubRepo {
	return &stubRepo{rows: make(map[uuid.UUID]*models.Content)}
}

func (s *stubRepo) Create(_ context.Context, row *models.Content) (*models.Content, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	s.rows[row.ID] = row
	return row, nil
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Content, error) {
	row, ok := s.rows[id]
	if !ok || row.DeletedAt != nil {
		return nil, ErrRowNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *stubRepo) Update(_ context.Context, row *models.Content) (*models.Content, error) {
	existing, ok := s.rows[row.ID]
	if !ok || existing.DeletedAt != nil {
		return nil, ErrRowNotFound
	}
	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = time.Now()
	s.rows[row.ID] = row
	copied := *row
	return &copied, nil
}

func (s *stubRepo) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) error {
	row, ok := s.rows[id]
	if !ok || row.DeletedAt != nil {
		return ErrRowNotFound
	}
	row.DeletedAt = &at
	return nil
}

func (s *stubRepo) IncrementCounter(_ context.Context, id uuid.UUID, column string) error {
	row, ok := s.rows[id]
	if !ok || row.DeletedAt != nil {
		return ErrRowNotFound
	}
	s.increments = append(s.increments, column)
	switch column {
	case "view_count":
		row.ViewCount++
	case "like_count":
		row.LikeCount++
	case "download_count":
		row.DownloadCount++
	}
	return nil
}

func (s *stubRepo) List(_ context.Context, _ *listQuery) ([]models.Content, int64, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listRows, s.listTotal, nil
}

type stubBlobs struct {
	saved    []string
	deleted  []string
	saveErr  error
	delErr   error
	failWhen string
}

func (s *stubBlobs) Save(_ context.Context, category, ownerID, fileName string, r io.Reader) (*local.Blob, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	if s.failWhen != "" && category == s.failWhen {
		return nil, errors.New("save rejected")
	}
	_, _ = io.Copy(io.Discard, r)
	path := "/" + category + "/" + ownerID + "/202603/" + uuid.NewString() + "_" + fileName
	s.saved = append(s.saved, path)
	return &local.Blob{
		Path:      path,
		Name:      fileName,
		Size:      42,
		Extension: local.Extension(fileName),
	}, nil
}

func (s *stubBlobs) Delete(_ context.Context, relPath string) error {
	if s.delErr != nil {
		return s.delErr
	}
	s.deleted = append(s.deleted, relPath)
	return nil
}

type spyCache struct {
	inner  querycache.Cache
	evicts int
	sets   int
}

func (c *spyCache) Get(ctx context.Context, key string) ([]byte, bool, uint64, error) {
	return c.inner.Get(ctx, key)
}

func (c *spyCache) Set(ctx context.Context, key string, value []byte, gen uint64) error {
	c.sets++
	return c.inner.Set(ctx, key, value, gen)
}

func (c *spyCache) EvictAll(ctx context.Context) error {
	c.evicts++
	return c.inner.EvictAll(ctx)
}

type fixture struct {
	svc   Service
	repo  *stubRepo
	blobs *stubBlobs
	cache *spyCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newStubRepo()
	blobs := &stubBlobs{}
	cache := &spyCache{inner: querycache.NewMemory()}
	svc, err := NewService(repo, blobs, cache, nil, nil, 200)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return &fixture{svc: svc, repo: repo, blobs: blobs, cache: cache}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("code = %s, want %s", typed.Code(), code)
	}
}

func attachmentInput(mutate func(*CreateInput)) CreateInput {
	input := CreateInput{
		Title:         "Fractions worksheet",
		ContentType:   "document",
		ContentFormat: "attachment",
		Subject:       "math",
	}
	if mutate != nil {
		mutate(&input)
	}
	return input
}

func linkInput(mutate func(*CreateInput)) CreateInput {
	input := CreateInput{
		Title:         "Video lesson",
		ContentType:   "video",
		ContentFormat: "url",
		ContentURL:    "https://example.com/lesson",
	}
	if mutate != nil {
		mutate(&input)
	}
	return input
}

func TestCreateWithFileStoresBlobAndDefaults(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()

	detail, err := f.svc.Create(context.Background(), ownerID, attachmentInput(func(in *CreateInput) {
		in.File = &Upload{
			Name:   "fractions.pdf",
			Size:   1024,
			Reader: strings.NewReader("pdf bytes"),
		}
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if detail.UserID != ownerID {
		t.Fatalf("user id = %s", detail.UserID)
	}
	if detail.ContentFormat != enums.ContentFormatAttachment {
		t.Fatalf("format = %s", detail.ContentFormat)
	}
	if detail.FilePath == nil || !strings.HasPrefix(*detail.FilePath, "/content/"+ownerID.String()+"/") {
		t.Fatalf("unexpected file path %v", detail.FilePath)
	}
	if detail.FileExtension == nil || *detail.FileExtension != "pdf" {
		t.Fatalf("unexpected extension %v", detail.FileExtension)
	}
	if detail.StorageType == nil || *detail.StorageType != "local" {
		t.Fatalf("storage type = %v", detail.StorageType)
	}
	if detail.ThumbnailPath == nil || *detail.ThumbnailPath != DefaultThumbnail("math") {
		t.Fatalf("unexpected thumbnail %v", detail.ThumbnailPath)
	}
	if detail.PublicStatus != enums.PublicStatusPublic {
		t.Fatalf("public status = %s", detail.PublicStatus)
	}
	if f.cache.evicts != 1 {
		t.Fatalf("expected one eviction, got %d", f.cache.evicts)
	}
}

func TestCreateWithoutFileKeepsMetadataOnly(t *testing.T) {
	f := newFixture(t)

	detail, err := f.svc.Create(context.Background(), uuid.New(), attachmentInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if detail.FilePath != nil {
		t.Fatalf("file path = %v, want nil", detail.FilePath)
	}
	if len(f.blobs.saved) != 0 {
		t.Fatalf("no blob expected, saved %v", f.blobs.saved)
	}
}

func TestCreateURLFormatRequiresURLAndRejectsFile(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()

	_, err := f.svc.Create(context.Background(), ownerID, linkInput(func(in *CreateInput) {
		in.ContentURL = ""
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(context.Background(), ownerID, linkInput(func(in *CreateInput) {
		in.File = &Upload{Name: "a.txt", Size: 4, Reader: strings.NewReader("aaaa")}
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	detail, err := f.svc.Create(context.Background(), ownerID, linkInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if detail.ContentURL == nil || *detail.ContentURL != "https://example.com/lesson" {
		t.Fatalf("content url = %v", detail.ContentURL)
	}
	if len(f.blobs.saved) != 0 {
		t.Fatalf("no blob expected, saved %v", f.blobs.saved)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, uuid.Nil, attachmentInput(nil))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, uuid.New(), attachmentInput(func(in *CreateInput) {
		in.Title = "   "
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, uuid.New(), attachmentInput(func(in *CreateInput) {
		in.ContentType = ""
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, uuid.New(), attachmentInput(func(in *CreateInput) {
		in.ContentFormat = "bogus"
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(ctx, uuid.New(), attachmentInput(func(in *CreateInput) {
		in.ContentFormat = ""
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	// oversized file
	_, err = f.svc.Create(ctx, uuid.New(), attachmentInput(func(in *CreateInput) {
		in.File = &Upload{Name: "big.bin", Size: 500 * 1024 * 1024, Reader: strings.NewReader("")}
	}))
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateStoresUploadedThumbnail(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()

	detail, err := f.svc.Create(context.Background(), ownerID, attachmentInput(func(in *CreateInput) {
		in.Thumbnail = &Upload{Name: "cover.png", Size: 64, Reader: strings.NewReader("png")}
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if detail.ThumbnailPath == nil || !strings.HasPrefix(*detail.ThumbnailPath, "/thumbnail/"+ownerID.String()+"/") {
		t.Fatalf("thumbnail = %v", detail.ThumbnailPath)
	}
}

func TestCreateCleansUpBlobWhenPersistFails(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Create(context.Background(), uuid.New(), attachmentInput(func(in *CreateInput) {
		in.File = &Upload{Name: "a.txt", Size: 10, Reader: strings.NewReader("aaaa")}
	}))
	expectCode(t, err, pkgerrors.CodeDependency)

	if len(f.blobs.saved) != 1 || len(f.blobs.deleted) != 1 {
		t.Fatalf("expected orphan blob cleanup, saved=%d deleted=%d", len(f.blobs.saved), len(f.blobs.deleted))
	}
	if f.cache.evicts != 0 {
		t.Fatalf("failed create must not evict, got %d", f.cache.evicts)
	}
}

func TestCreateCleansUpPayloadWhenThumbnailFails(t *testing.T) {
	f := newFixture(t)
	f.blobs.failWhen = "thumbnail"

	_, err := f.svc.Create(context.Background(), uuid.New(), attachmentInput(func(in *CreateInput) {
		in.File = &Upload{Name: "a.txt", Size: 10, Reader: strings.NewReader("aaaa")}
		in.Thumbnail = &Upload{Name: "cover.png", Size: 64, Reader: strings.NewReader("png")}
	}))
	expectCode(t, err, pkgerrors.CodeDependency)

	if len(f.blobs.saved) != 1 || len(f.blobs.deleted) != 1 {
		t.Fatalf("payload blob should be reaped, saved=%d deleted=%d", len(f.blobs.saved), len(f.blobs.deleted))
	}
}

func updateInput(mutate func(*UpdateInput)) UpdateInput {
	input := UpdateInput{
		Title:         "Fractions worksheet",
		ContentType:   "document",
		ContentFormat: "attachment",
		Subject:       "math",
	}
	if mutate != nil {
		mutate(&input)
	}
	return input
}

func TestUpdateRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, linkInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	input := updateInput(func(in *UpdateInput) {
		in.Title = "stolen"
		in.ContentURL = "https://example.com/lesson"
	})
	_, err = f.svc.Update(ctx, uuid.New(), detail.ID, input)
	expectCode(t, err, pkgerrors.CodeForbidden)

	updated, err := f.svc.Update(ctx, ownerID, detail.ID, input)
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if updated.Title != "stolen" {
		t.Fatalf("title = %q", updated.Title)
	}
}

func TestUpdateReplacesWholeMetadataSet(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, attachmentInput(func(in *CreateInput) {
		in.Description = "original description"
		in.Keywords = "fractions,math"
		in.Grade = "5"
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.Title = "Renamed"
		in.Subject = ""
	}))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.Title != "Renamed" {
		t.Fatalf("title = %q", updated.Title)
	}
	// fields left out of the replacement set are cleared, not kept
	if updated.Description != nil {
		t.Fatalf("description = %v, want cleared", updated.Description)
	}
	if updated.Keywords != nil {
		t.Fatalf("keywords = %v, want cleared", updated.Keywords)
	}
	if updated.Grade != nil {
		t.Fatalf("grade = %v, want cleared", updated.Grade)
	}
	// the stored thumbnail is the one field that survives a metadata update
	if updated.ThumbnailPath == nil || *updated.ThumbnailPath != DefaultThumbnail("math") {
		t.Fatalf("thumbnail = %v, want the stored one kept", updated.ThumbnailPath)
	}
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, linkInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.Title = "  "
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.ContentType = ""
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.ContentFormat = "bogus"
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	// url-format rows must keep a url and never gain a file
	_, err = f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.ContentFormat = "url"
	}))
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.ContentFormat = "url"
		in.ContentURL = "https://example.com/lesson"
		in.File = &Upload{Name: "a.txt", Size: 4, Reader: strings.NewReader("aaaa")}
	}))
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateReplacingFileDeletesOldBlobFirst(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, attachmentInput(func(in *CreateInput) {
		in.File = &Upload{Name: "v1.pdf", Size: 10, Reader: strings.NewReader("v1")}
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	oldPath := *detail.FilePath
	savedBefore := len(f.blobs.saved)

	updated, err := f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.File = &Upload{Name: "v2.pdf", Size: 10, Reader: strings.NewReader("v2")}
	}))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if *updated.FilePath == oldPath {
		t.Fatal("expected a new blob path")
	}
	if len(f.blobs.deleted) != 1 || f.blobs.deleted[0] != oldPath {
		t.Fatalf("expected old blob deleted, got %v", f.blobs.deleted)
	}
	if len(f.blobs.saved) != savedBefore+1 {
		t.Fatalf("saved = %v", f.blobs.saved)
	}
	if f.cache.evicts != 2 {
		t.Fatalf("expected evictions for create and update, got %d", f.cache.evicts)
	}
}

func TestUpdateBlobDeleteFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, attachmentInput(func(in *CreateInput) {
		in.File = &Upload{Name: "v1.pdf", Size: 10, Reader: strings.NewReader("v1")}
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	f.blobs.delErr = errors.New("disk detached")
	if _, err := f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.File = &Upload{Name: "v2.pdf", Size: 10, Reader: strings.NewReader("v2")}
	})); err != nil {
		t.Fatalf("update should survive blob cleanup failure: %v", err)
	}
}

func TestUpdateThumbnailReplacesStoredBlobOnly(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	// default thumbnail is an external url, never handed to the blob store
	detail, err := f.svc.Create(ctx, ownerID, attachmentInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.Thumbnail = &Upload{Name: "cover.png", Size: 64, Reader: strings.NewReader("png")}
	}))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(f.blobs.deleted) != 0 {
		t.Fatalf("external thumbnail must not be deleted, got %v", f.blobs.deleted)
	}
	storedThumb := *updated.ThumbnailPath
	if !strings.HasPrefix(storedThumb, "/thumbnail/") {
		t.Fatalf("thumbnail = %q", storedThumb)
	}

	// replacing a stored thumbnail reaps the old blob
	if _, err := f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.Thumbnail = &Upload{Name: "cover2.png", Size: 64, Reader: strings.NewReader("png")}
	})); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if len(f.blobs.deleted) != 1 || f.blobs.deleted[0] != storedThumb {
		t.Fatalf("deleted = %v, want %q", f.blobs.deleted, storedThumb)
	}
}

func TestUpdateKeepsStoredThumbnailWhenNotResupplied(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, attachmentInput(func(in *CreateInput) {
		in.Thumbnail = &Upload{Name: "cover.png", Size: 64, Reader: strings.NewReader("png")}
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	storedThumb := *detail.ThumbnailPath

	// a metadata-only update must not swap the uploaded thumbnail for the
	// subject default
	updated, err := f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.Title = "Renamed"
	}))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ThumbnailPath == nil || *updated.ThumbnailPath != storedThumb {
		t.Fatalf("thumbnail = %v, want %q kept", updated.ThumbnailPath, storedThumb)
	}
	if len(f.blobs.deleted) != 0 {
		t.Fatalf("kept thumbnail must not be deleted, got %v", f.blobs.deleted)
	}

	// an explicit path still replaces it
	updated, err = f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.ThumbnailPath = "https://example.com/cover.png"
	}))
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if *updated.ThumbnailPath != "https://example.com/cover.png" {
		t.Fatalf("thumbnail = %q", *updated.ThumbnailPath)
	}
}

func TestUpdateOverwritesFormatAndHierarchy(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	parentID := uuid.New()
	detail, err := f.svc.Create(ctx, ownerID, attachmentInput(func(in *CreateInput) {
		in.ParentContentID = &parentID
		in.IsSupportMaterial = true
		in.StorageType = "s3"
	}))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if detail.ParentContentID == nil || !detail.IsSupportMaterial {
		t.Fatalf("unexpected created row %+v", detail)
	}

	updated, err := f.svc.Update(ctx, ownerID, detail.ID, updateInput(func(in *UpdateInput) {
		in.ContentFormat = "url"
		in.ContentURL = "https://example.com/lesson"
	}))
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if updated.ContentFormat != enums.ContentFormatURL {
		t.Fatalf("format = %s, want url", updated.ContentFormat)
	}
	if updated.ContentURL == nil || *updated.ContentURL != "https://example.com/lesson" {
		t.Fatalf("content url = %v", updated.ContentURL)
	}
	// hierarchy and storage fields left out of the replacement set are cleared
	if updated.ParentContentID != nil {
		t.Fatalf("parent = %v, want cleared", updated.ParentContentID)
	}
	if updated.IsSupportMaterial {
		t.Fatal("support flag should be cleared")
	}
	if updated.StorageType != nil {
		t.Fatalf("storage type = %v, want cleared", updated.StorageType)
	}
}

func TestOperationsRecordDurations(t *testing.T) {
	reg := prometheus.NewRegistry()
	repo := newStubRepo()
	cache := &spyCache{inner: querycache.NewMemory()}
	svc, err := NewService(repo, &stubBlobs{}, cache, nil, metrics.NewContentMetrics(reg), 200)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	ctx := context.Background()
	ownerID := uuid.New()

	detail, err := svc.Create(ctx, ownerID, linkInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Get(ctx, detail.ID); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if _, err := svc.ListPublic(ctx, pagination.Params{Page: 1, Size: 10}); err != nil {
		t.Fatalf("list failed: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, op := range []string{"create", "get", "list"} {
		if got := histogramSamples(t, mfs, "content_op_duration_seconds", op); got == 0 {
			t.Fatalf("no duration samples recorded for %s", op)
		}
	}
}

func histogramSamples(t *testing.T, mfs []*dto.MetricFamily, name, op string) uint64 {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "op" && label.GetValue() == op {
					return metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	return 0
}

func TestGetIncrementsViewCount(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, linkInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	evictsAfterCreate := f.cache.evicts

	got, err := f.svc.Get(ctx, detail.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.ViewCount != 1 {
		t.Fatalf("view count = %d, want 1", got.ViewCount)
	}

	got, err = f.svc.Get(ctx, detail.ID)
	if err != nil {
		t.Fatalf("second get failed: %v", err)
	}
	if got.ViewCount != 2 {
		t.Fatalf("view count = %d, want 2", got.ViewCount)
	}

	if f.cache.evicts != evictsAfterCreate {
		t.Fatal("counter increments must not evict the cache")
	}
}

func TestGetMissingContent(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeleteSoftDeletesAndGates(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, linkInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = f.svc.Delete(ctx, uuid.New(), detail.ID)
	expectCode(t, err, pkgerrors.CodeForbidden)

	if err := f.svc.Delete(ctx, ownerID, detail.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	_, err = f.svc.Get(ctx, detail.ID)
	expectCode(t, err, pkgerrors.CodeNotFound)

	err = f.svc.Delete(ctx, ownerID, detail.ID)
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestCountersDoNotEvictCache(t *testing.T) {
	f := newFixture(t)
	ownerID := uuid.New()
	ctx := context.Background()

	detail, err := f.svc.Create(ctx, ownerID, linkInput(nil))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	before := f.cache.evicts

	if err := f.svc.IncreaseLike(ctx, detail.ID); err != nil {
		t.Fatalf("like failed: %v", err)
	}
	if err := f.svc.IncreaseDownload(ctx, detail.ID); err != nil {
		t.Fatalf("download failed: %v", err)
	}

	if f.cache.evicts != before {
		t.Fatalf("counters evicted cache: %d -> %d", before, f.cache.evicts)
	}
	if len(f.repo.increments) != 2 {
		t.Fatalf("increments = %v", f.repo.increments)
	}
}

func TestListUsesCacheUntilEviction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.listRows = []models.Content{{ID: uuid.New(), UserID: uuid.New(), Title: "a"}}
	f.repo.listTotal = 1

	page := pagination.Params{Page: 1, Size: 10}

	first, err := f.svc.ListPublic(ctx, page)
	if err != nil {
		t.Fatalf("first list failed: %v", err)
	}
	if first.Total != 1 || len(first.Items) != 1 {
		t.Fatalf("unexpected result %+v", first)
	}
	if f.repo.listCalls != 1 {
		t.Fatalf("list calls = %d", f.repo.listCalls)
	}

	if _, err := f.svc.ListPublic(ctx, page); err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if f.repo.listCalls != 1 {
		t.Fatalf("expected cache hit, list calls = %d", f.repo.listCalls)
	}

	// a mutation clears the cache and the next list hits the repository
	if _, err := f.svc.Create(ctx, uuid.New(), linkInput(nil)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := f.svc.ListPublic(ctx, page); err != nil {
		t.Fatalf("third list failed: %v", err)
	}
	if f.repo.listCalls != 2 {
		t.Fatalf("expected repo reload after eviction, list calls = %d", f.repo.listCalls)
	}
}

func TestSupportMaterialsBypassesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parentID := uuid.New()
	f.repo.listRows = []models.Content{{ID: uuid.New(), Title: "worksheet", IsSupportMaterial: true}}
	f.repo.listTotal = 1

	page := pagination.Params{Page: 1, Size: 10}
	for i := 0; i < 2; i++ {
		result, err := f.svc.SupportMaterials(ctx, parentID, page)
		if err != nil {
			t.Fatalf("support materials failed: %v", err)
		}
		if result.Total != 1 || len(result.Items) != 1 {
			t.Fatalf("unexpected result %+v", result)
		}
	}

	if f.repo.listCalls != 2 {
		t.Fatalf("every call must hit the repository, list calls = %d", f.repo.listCalls)
	}
	if f.cache.sets != 0 {
		t.Fatalf("support materials must not populate the cache, sets = %d", f.cache.sets)
	}
}

func TestListRejectsUnknownSortField(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListPublic(context.Background(), pagination.Params{Sort: "secretColumn"})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestListWrappersValidateInputs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	page := pagination.Params{}

	if _, err := f.svc.ListByOwner(ctx, uuid.Nil, page); pkgerrors.As(err) == nil {
		t.Fatal("expected owner validation error")
	}
	if _, err := f.svc.ListByChannel(ctx, "  ", page); pkgerrors.As(err) == nil {
		t.Fatal("expected channel validation error")
	}
	if _, err := f.svc.ListByType(ctx, "", page); pkgerrors.As(err) == nil {
		t.Fatal("expected type validation error")
	}
	if _, err := f.svc.ListByOwnerAndFolder(ctx, uuid.New(), "", page); pkgerrors.As(err) == nil {
		t.Fatal("expected folder validation error")
	}
	if _, err := f.svc.SearchKeyword(ctx, "", page); pkgerrors.As(err) == nil {
		t.Fatal("expected keyword validation error")
	}
	if _, err := f.svc.SupportMaterials(ctx, uuid.Nil, page); pkgerrors.As(err) == nil {
		t.Fatal("expected parent validation error")
	}
}

func TestDefaultThumbnailTable(t *testing.T) {
	cases := map[string]string{
		"math":    "photo-1509228468518-180dd4864904",
		"korean":  "photo-1456513080510-7bf3a84b82f8",
		"english": "photo-1546410531-bb4caa6b424d",
		"science": "photo-1532094349884-543bc11b234d",
		"social":  "photo-1526778548025-fa2f459cd5c1",
		"history": "photo-1503676260728-1c00da094a0b",
		"":        "photo-1503676260728-1c00da094a0b",
		"  MATH ": "photo-1509228468518-180dd4864904",
	}
	for subject, fragment := range cases {
		url := DefaultThumbnail(subject)
		if !strings.Contains(url, fragment) {
			t.Fatalf("DefaultThumbnail(%q) = %s, want fragment %s", subject, url, fragment)
		}
		if !strings.HasSuffix(url, "?w=400&h=300&fit=crop") {
			t.Fatalf("DefaultThumbnail(%q) missing sizing params: %s", subject, url)
		}
	}
}

func TestIsOwner(t *testing.T) {
	ownerID := uuid.New()
	row := &models.Content{UserID: ownerID}

	if !IsOwner(row, ownerID) {
		t.Fatal("owner should match")
	}
	if IsOwner(row, uuid.New()) {
		t.Fatal("stranger should not match")
	}
	if IsOwner(nil, ownerID) {
		t.Fatal("nil row should not match")
	}
	if IsOwner(row, uuid.Nil) {
		t.Fatal("nil user should not match")
	}
}
