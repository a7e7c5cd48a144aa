package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/s3ui/bucketgate/internal/api/metrics"
	"github.com/s3ui/bucketgate/internal/core/domain"
	"github.com/s3ui/bucketgate/internal/core/ports"
)

const msgZipSent = "Zip request sent!"

// StorageHandler serves the bucket browsing endpoints.
type StorageHandler struct {
	service ports.StorageService
}

func NewStorageHandler(service ports.StorageService) *StorageHandler {
	return &StorageHandler{service: service}
}

// --- Request / Response types ---

type presignRequest struct {
	Keys      []string `json:"keys"       validate:"required,min=1,dive,required"`
	ExpiresIn int      `json:"expires_in" validate:"required,min=1,max=604800"`
}

type presignResponse struct {
	PresignedURLs []domain.PresignedURL `json:"presigned_urls"`
}

type zipRequest struct {
	// Folder may be empty for the bucket root but must be present.
	Folder      *string  `json:"folder"        validate:"required"`
	Prefixes    []string `json:"prefixes"      validate:"required,min=1,dive,required"`
	ZipFileName string   `json:"zip_file_name" validate:"required,zipfilename"`
}

type listResponse struct {
	Files       []domain.Object      `json:"files"`
	Folders     []domain.Folder      `json:"folders"`
	ZipProgress []domain.ZipProgress `json:"zip_progress"`
}

// ListFilesFolders handles GET /api/list-files-folders/:bucket/*.
//
// @Summary      List files and folders
// @Description  Lists objects and common prefixes directly under folder, with archive job progress.
// @Tags         storage
// @Produce      json
// @Security     BearerAuth
// @Param        bucket  path      string  true   "Bucket name"
// @Param        folder  path      string  false  "Folder prefix, e.g. photos/2024/"
// @Success      200     {object}  listResponse
// @Failure      401     {object}  messageResponse
// @Failure      403     {object}  messageResponse
// @Failure      404     {object}  messageResponse
// @Router       /api/list-files-folders/{bucket}/{folder} [get]
func (h *StorageHandler) ListFilesFolders(c echo.Context) error {
	bucket := c.Param("bucket")
	folder := c.Param("*")
	if unescaped, err := url.PathUnescape(folder); err == nil {
		folder = unescaped
	}

	res, err := h.service.List(c.Request().Context(), bucket, folder)
	if err != nil {
		return storageError(c, err)
	}
	return c.JSON(http.StatusOK, listResponse{
		Files:       res.Files,
		Folders:     res.Folders,
		ZipProgress: res.ZipProgress,
	})
}

// GetPresignedURLs handles POST /api/get-presigned-urls/:bucket/.
//
// @Summary      Presign object downloads
// @Tags         storage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bucket  path      string          true  "Bucket name"
// @Param        body    body      presignRequest  true  "Keys and expiry in seconds"
// @Success      200     {object}  presignResponse
// @Failure      401     {object}  messageResponse
// @Failure      403     {object}  messageResponse
// @Failure      404     {object}  messageResponse
// @Router       /api/get-presigned-urls/{bucket}/ [post]
func (h *StorageHandler) GetPresignedURLs(c echo.Context) error {
	bucket := c.Param("bucket")

	var req presignRequest
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusForbidden, msgInvalidPayload)
	}
	if err := c.Validate(&req); err != nil {
		return message(c, http.StatusForbidden, err.Error())
	}

	urls, err := h.service.Presign(c.Request().Context(), ports.PresignInput{
		Bucket:    bucket,
		Keys:      req.Keys,
		ExpiresIn: req.ExpiresIn,
	})
	if err != nil {
		return storageError(c, err)
	}

	metrics.PresignedURLsTotal.WithLabelValues(bucket).Add(float64(len(urls)))
	return c.JSON(http.StatusOK, presignResponse{PresignedURLs: urls})
}

// ZipFiles handles POST /api/zip-files/:bucket/.
//
// @Summary      Request a zip archive
// @Description  Starts an asynchronous archive job. Progress shows up in the folder listing.
// @Tags         storage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        bucket  path      string      true  "Bucket name"
// @Param        body    body      zipRequest  true  "Folder, prefixes and archive name"
// @Success      200     {object}  messageResponse
// @Failure      401     {object}  messageResponse
// @Failure      403     {object}  messageResponse
// @Failure      404     {object}  messageResponse
// @Router       /api/zip-files/{bucket}/ [post]
func (h *StorageHandler) ZipFiles(c echo.Context) error {
	bucket := c.Param("bucket")

	var req zipRequest
	if err := c.Bind(&req); err != nil {
		metrics.ZipRequestsTotal.WithLabelValues(bucket, "rejected").Inc()
		return message(c, http.StatusForbidden, msgInvalidPayload)
	}
	if err := c.Validate(&req); err != nil {
		metrics.ZipRequestsTotal.WithLabelValues(bucket, "rejected").Inc()
		return message(c, http.StatusForbidden, err.Error())
	}

	err := h.service.Zip(c.Request().Context(), ports.ZipInput{
		Bucket:      bucket,
		Folder:      *req.Folder,
		Prefixes:    req.Prefixes,
		ZipFileName: req.ZipFileName,
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrBucketNotFound) {
			result = "rejected"
		}
		metrics.ZipRequestsTotal.WithLabelValues(bucket, result).Inc()
		return storageError(c, err)
	}

	metrics.ZipRequestsTotal.WithLabelValues(bucket, "accepted").Inc()
	return message(c, http.StatusOK, msgZipSent)
}

// storageError renders the storage error taxonomy. Anything unrecognised
// goes to the central error handler.
func storageError(c echo.Context, err error) error {
	var ve *domain.ValidationError
	var ue *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrBucketNotFound):
		return message(c, http.StatusNotFound, "Bucket not found")
	case errors.As(err, &ve):
		return message(c, http.StatusForbidden, ve.Reason)
	case errors.As(err, &ue):
		if ue.StatusCode >= http.StatusBadRequest {
			return message(c, ue.StatusCode, ue.Error())
		}
		return message(c, http.StatusForbidden, ue.Error())
	}
	return err
}
