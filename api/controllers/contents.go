package controllers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gyoansoft/gyoan-backend/api/middleware"
	"github.com/gyoansoft/gyoan-backend/api/responses"
	"github.com/gyoansoft/gyoan-backend/api/validators"
	"github.com/gyoansoft/gyoan-backend/internal/content"
	pkgerrors "github.com/gyoansoft/gyoan-backend/pkg/errors"
	"github.com/gyoansoft/gyoan-backend/pkg/logger"
	"github.com/gyoansoft/gyoan-backend/pkg/pagination"
)

// multipartMemoryBytes caps how much of a multipart body is buffered in
// memory; larger file parts spill to temp files.
const multipartMemoryBytes = 16 << 20

// contentRequest is the payload for both create and update: updates replace
// the whole metadata set, so the same fields must be resupplied.
type contentRequest struct {
	Title               string `json:"title" validate:"required,max=255"`
	Description         string `json:"description"`
	ContentType         string `json:"content_type" validate:"required,max=100"`
	SchoolLevel         string `json:"school_level"`
	Grade               string `json:"grade"`
	Semester            string `json:"semester"`
	Subject             string `json:"subject"`
	AchievementStandard string `json:"achievement_standard"`

	ContentFormat string `json:"content_format" validate:"required,oneof=attachment file url"`
	ContentURL    string `json:"content_url" validate:"omitempty,url"`

	ParentContentID   string `json:"parent_content_id"`
	IsSupportMaterial bool   `json:"is_support_material"`

	ThumbnailPath  string `json:"thumbnail_path"`
	Keywords       string `json:"keywords"`
	CopyrightType  string `json:"copyright_type"`
	UsageCondition string `json:"usage_condition"`

	PublicStatus string `json:"public_status" validate:"omitempty,oneof=public private"`
	StorageType  string `json:"storage_type"`
	ChannelID    string `json:"channel_id"`
	FolderPath   string `json:"folder_path"`
}

func (p contentRequest) parentID() (*uuid.UUID, error) {
	raw := strings.TrimSpace(p.ParentContentID)
	if raw == "" {
		return nil, nil
	}
	parentID, err := validators.ParseQueryUUID(raw, "parent_content_id")
	if err != nil {
		return nil, err
	}
	return &parentID, nil
}

func (p contentRequest) toCreateInput() (content.CreateInput, error) {
	parentID, err := p.parentID()
	if err != nil {
		return content.CreateInput{}, err
	}
	return content.CreateInput{
		Title:               p.Title,
		Description:         p.Description,
		ContentType:         p.ContentType,
		SchoolLevel:         p.SchoolLevel,
		Grade:               p.Grade,
		Semester:            p.Semester,
		Subject:             p.Subject,
		AchievementStandard: p.AchievementStandard,
		ContentFormat:       p.ContentFormat,
		ContentURL:          p.ContentURL,
		ParentContentID:     parentID,
		IsSupportMaterial:   p.IsSupportMaterial,
		ThumbnailPath:       p.ThumbnailPath,
		Keywords:            p.Keywords,
		CopyrightType:       p.CopyrightType,
		UsageCondition:      p.UsageCondition,
		PublicStatus:        p.PublicStatus,
		StorageType:         p.StorageType,
		ChannelID:           p.ChannelID,
		FolderPath:          p.FolderPath,
	}, nil
}

func (p contentRequest) toUpdateInput() (content.UpdateInput, error) {
	parentID, err := p.parentID()
	if err != nil {
		return content.UpdateInput{}, err
	}
	return content.UpdateInput{
		Title:               p.Title,
		Description:         p.Description,
		ContentType:         p.ContentType,
		SchoolLevel:         p.SchoolLevel,
		Grade:               p.Grade,
		Semester:            p.Semester,
		Subject:             p.Subject,
		AchievementStandard: p.AchievementStandard,
		ContentFormat:       p.ContentFormat,
		ContentURL:          p.ContentURL,
		ParentContentID:     parentID,
		IsSupportMaterial:   p.IsSupportMaterial,
		ThumbnailPath:       p.ThumbnailPath,
		Keywords:            p.Keywords,
		CopyrightType:       p.CopyrightType,
		UsageCondition:      p.UsageCondition,
		PublicStatus:        p.PublicStatus,
		StorageType:         p.StorageType,
		ChannelID:           p.ChannelID,
		FolderPath:          p.FolderPath,
	}, nil
}

func requestFromForm(form *multipart.Form) contentRequest {
	return contentRequest{
		Title:               formValue(form, "title"),
		Description:         formValue(form, "description"),
		ContentType:         formValue(form, "content_type"),
		SchoolLevel:         formValue(form, "school_level"),
		Grade:               formValue(form, "grade"),
		Semester:            formValue(form, "semester"),
		Subject:             formValue(form, "subject"),
		AchievementStandard: formValue(form, "achievement_standard"),
		ContentFormat:       formValue(form, "content_format"),
		ContentURL:          formValue(form, "content_url"),
		ParentContentID:     formValue(form, "parent_content_id"),
		IsSupportMaterial:   formBool(form, "is_support_material"),
		ThumbnailPath:       formValue(form, "thumbnail_path"),
		Keywords:            formValue(form, "keywords"),
		CopyrightType:       formValue(form, "copyright_type"),
		UsageCondition:      formValue(form, "usage_condition"),
		PublicStatus:        formValue(form, "public_status"),
		StorageType:         formValue(form, "storage_type"),
		ChannelID:           formValue(form, "channel_id"),
		FolderPath:          formValue(form, "folder_path"),
	}
}

// ContentCreate handles registering new content, either as a JSON body for
// link-only entries or as a multipart form carrying the payload and an
// optional thumbnail part.
func ContentCreate(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "content service unavailable"))
			return
		}

		ownerID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload contentRequest
		var file, thumb *content.Upload

		if isMultipart(r) {
			form, closeForm, err := parseMultipart(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			defer closeForm()

			payload = requestFromForm(form)

			file, err = formFile(form, "file")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			thumb, err = formFile(form, "thumbnail")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		} else {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.File = file
		input.Thumbnail = thumb

		detail, err := svc.Create(r.Context(), ownerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, detail)
	}
}

// ContentUpdate replaces the full metadata set of an owned row; a file part
// replaces the stored payload and a thumbnail part replaces the thumbnail.
func ContentUpdate(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "content service unavailable"))
			return
		}

		ownerID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contentID, err := validators.ParseQueryUUID(chi.URLParam(r, "contentID"), "content id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload contentRequest
		var file, thumb *content.Upload

		if isMultipart(r) {
			form, closeForm, err := parseMultipart(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			defer closeForm()

			payload = requestFromForm(form)

			file, err = formFile(form, "file")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			thumb, err = formFile(form, "thumbnail")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		} else {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		if err := validators.ValidateStruct(&payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.File = file
		input.Thumbnail = thumb

		detail, err := svc.Update(r.Context(), ownerID, contentID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// ContentGet returns a single content row and records the view.
func ContentGet(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, err := validators.ParseQueryUUID(chi.URLParam(r, "contentID"), "content id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.Get(r.Context(), contentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

// ContentDelete soft-deletes an owned content row.
func ContentDelete(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contentID, err := validators.ParseQueryUUID(chi.URLParam(r, "contentID"), "content id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), ownerID, contentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ContentLike bumps the like counter.
func ContentLike(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return counterHandler(svc.IncreaseLike, logg)
}

// ContentDownload bumps the download counter.
func ContentDownload(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return counterHandler(svc.IncreaseDownload, logg)
}

// ContentListPublic lists publicly visible content.
func ContentListPublic(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPublic(r.Context(), page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ContentListMine lists the caller's own content, including private rows.
func ContentListMine(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result *content.ListResult
		if folder := validators.SanitizeString(r.URL.Query().Get("folder"), 255); folder != "" {
			result, err = svc.ListByOwnerAndFolder(r.Context(), ownerID, folder, page)
		} else {
			result, err = svc.ListByOwner(r.Context(), ownerID, page)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ContentListByChannel lists public content published to one channel.
func ContentListByChannel(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := validators.SanitizeString(chi.URLParam(r, "channelID"), 100)

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByChannel(r.Context(), channelID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ContentListByType lists public content of one content type.
func ContentListByType(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentType := validators.SanitizeString(chi.URLParam(r, "contentType"), 100)

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListByType(r.Context(), contentType, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ContentSearch searches the keywords of public content.
func ContentSearch(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keyword := validators.SanitizeString(r.URL.Query().Get("q"), 255)

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SearchKeyword(r.Context(), keyword, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ContentSupportMaterials lists support materials attached to a parent row.
func ContentSupportMaterials(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parentID, err := validators.ParseQueryUUID(chi.URLParam(r, "contentID"), "content id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SupportMaterials(r.Context(), parentID, page)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// ContentPopular lists the most-viewed public content.
func ContentPopular(svc content.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size, err := validators.ParseQueryInt(r, "size", 10, 1, pagination.MaxSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Popular(r.Context(), size)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

func counterHandler(bump func(ctx context.Context, contentID uuid.UUID) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, err := validators.ParseQueryUUID(chi.URLParam(r, "contentID"), "content id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := bump(r.Context(), contentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

func requestUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return userID, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/")
}

func parseMultipart(r *http.Request) (*multipart.Form, func(), error) {
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed multipart body")
	}
	form := r.MultipartForm
	return form, func() { form.RemoveAll() }, nil
}

func formValue(form *multipart.Form, key string) string {
	values := form.Value[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func formBool(form *multipart.Form, key string) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(formValue(form, key)))
	return err == nil && parsed
}

// formFile opens the named file part if present. The handle stays open for
// the length of the request; multipart.Form.RemoveAll closes it.
func formFile(form *multipart.Form, key string) (*content.Upload, error) {
	headers := form.File[key]
	if len(headers) == 0 {
		return nil, nil
	}
	header := headers[0]
	f, err := header.Open()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable file part")
	}
	return &content.Upload{
		Name:   header.Filename,
		Size:   header.Size,
		Reader: f,
	}, nil
}
