package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appvalidation "github.com/ifcvalidation/bff/internal/application/validation"
	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/ifcvalidation/bff/internal/infrastructure/logger"
	"github.com/ifcvalidation/bff/internal/interfaces/http/dto"
	"github.com/ifcvalidation/bff/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// ValidationService is the application service behind the legacy endpoints
type ValidationService interface {
	Me(user *identity.User) (appvalidation.MeView, error)
	ListPaginated(ctx context.Context, user *identity.User, start, end int) (*appvalidation.ModelPage, error)
	Download(ctx context.Context, user *identity.User, id int64) (*appvalidation.Download, error)
	Upload(ctx context.Context, user *identity.User, files []appvalidation.UploadFile) (*appvalidation.UploadResult, error)
	Delete(ctx context.Context, user *identity.User, ids string) error
	Revalidate(ctx context.Context, user *identity.User, ids string) error
	Report(ctx context.Context, user *identity.User, id int64) (*appvalidation.Report, error)
}

var _ ValidationService = (*appvalidation.Service)(nil)

// StepContentType is the media type of downloaded IFC files
const StepContentType = "application/x-step"

// maxIndexedFileFields is the number of file[i] fields the upload form may use
const maxIndexedFileFields = 15

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files
const multipartMemory = 32 << 20

// LegacyHandler serves the /api endpoints of the dashboard frontend. Responses
// use the bare legacy payloads, not the dto.Response envelope.
type LegacyHandler struct {
	BaseHandler
	service  ValidationService
	loginURL string
}

// NewLegacyHandler creates a new LegacyHandler. loginURL is where anonymous
// users are redirected.
func NewLegacyHandler(service ValidationService, loginURL string) *LegacyHandler {
	return &LegacyHandler{
		service:  service,
		loginURL: loginURL,
	}
}

// PageParams are the slice bounds of models_paginated
type PageParams struct {
	Start int `uri:"start" binding:"gte=0"`
	End   int `uri:"end" binding:"gte=0"`
}

// IDParam is a single request id in the path
type IDParam struct {
	ID int64 `uri:"id" binding:"required"`
}

// IDsParam is a comma-separated list of request ids in the path
type IDsParam struct {
	IDs string `uri:"ids" binding:"required"`
}

// respondError writes the legacy answer for a service error. Missing and
// inactive accounts get redirect payloads; everything else goes through
// HandleError.
func (h *LegacyHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthorized):
		c.JSON(http.StatusOK, dto.NewLoginRedirect(h.loginURL))
	case errors.Is(err, appvalidation.ErrWaitingZone):
		c.JSON(http.StatusOK, dto.NewWaitingZoneRedirect())
	default:
		if !isClientError(err) {
			logger.L(c.Request.Context()).Error("Legacy request failed",
				zap.String("route", c.FullPath()),
				zap.String("request_id", getRequestID(c)),
				zap.Error(err),
			)
		}
		h.HandleError(c, err)
	}
}

func isClientError(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr)
}

// Me godoc
// @ID           getMe
// @Summary      Current user
// @Description  Profile of the signed-in user, or a login redirect
// @Tags         legacy
// @Produce      json
// @Success      200 {object} appvalidation.MeView
// @Failure      500 {object} ErrorResponse
// @Router       /me [get]
func (h *LegacyHandler) Me(c *gin.Context) {
	view, err := h.service.Me(middleware.GetCurrentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ModelsPaginated godoc
// @ID           listModelsPaginated
// @Summary      List validation requests
// @Description  Requests start..end of the user's dashboard plus the total count
// @Tags         legacy
// @Produce      json
// @Param        start path int true "First index (inclusive)"
// @Param        end   path int true "Last index (exclusive)"
// @Success      200 {object} appvalidation.ModelPage
// @Failure      400 {object} ErrorResponse
// @Router       /models_paginated/{start}/{end} [get]
func (h *LegacyHandler) ModelsPaginated(c *gin.Context) {
	var params PageParams
	if err := c.ShouldBindUri(&params); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	page, err := h.service.ListPaginated(c.Request.Context(), middleware.GetCurrentUser(c), params.Start, params.End)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Download godoc
// @ID           downloadModel
// @Summary      Download a stored file
// @Tags         legacy
// @Produce      application/x-step
// @Param        id path int true "Validation request id"
// @Success      200 {file} file
// @Failure      404
// @Router       /download/{id} [get]
func (h *LegacyHandler) Download(c *gin.Context) {
	var params IDParam
	if err := c.ShouldBindUri(&params); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	file, err := h.service.Download(c.Request.Context(), middleware.GetCurrentUser(c), params.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		h.respondError(c, err)
		return
	}
	defer file.Content.Close()

	c.DataFromReader(http.StatusOK, file.Size, StepContentType, file.Content, map[string]string{
		"Content-Disposition": attachmentDisposition(file.FileName),
	})
}

var dispositionEscaper = strings.NewReplacer(`"`, `'`, "\r", "", "\n", "", `\`, "")

func attachmentDisposition(fileName string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, dispositionEscaper.Replace(fileName))
}

// Upload godoc
// @ID           uploadModels
// @Summary      Upload files for validation
// @Description  Accepts multipart fields "file" (repeatable) and "file[0]".."file[14]"
// @Tags         legacy
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "IFC file"
// @Success      200 {object} dto.UploadResponse
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Router       /upload [post]
func (h *LegacyHandler) Upload(c *gin.Context) {
	var headers []*multipart.FileHeader
	var parseErr error
	if c.Request.Method == http.MethodPost {
		headers, parseErr = formFiles(c)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(parseErr, &tooLarge) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
			fmt.Sprintf("Request body exceeds maximum allowed size of %d bytes", tooLarge.Limit))
		return
	}
	if len(headers) == 0 {
		logger.L(c.Request.Context()).Error("Received invalid upload request",
			zap.String("method", c.Request.Method),
			zap.String("content_type", c.ContentType()),
			zap.Error(parseErr),
		)
		h.BadRequest(c, "Expected a POST with at least one file")
		return
	}

	files := make([]appvalidation.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, appvalidation.UploadFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: openPart(fh),
		})
	}

	if _, err := h.service.Upload(c.Request.Context(), middleware.GetCurrentUser(c), files); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.UploadResponse{URL: dto.DashboardPath})
}

// formFiles collects the uploaded files in field order: every "file" part
// first, then "file[0]" to "file[14]". A body cut off by the size limit
// surfaces as *http.MaxBytesError.
func formFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}
	form := c.Request.MultipartForm
	if form == nil {
		return nil, nil
	}

	headers := append([]*multipart.FileHeader(nil), form.File["file"]...)
	for i := range maxIndexedFileFields {
		headers = append(headers, form.File[fmt.Sprintf("file[%d]", i)]...)
	}
	return headers, nil
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

// Delete godoc
// @ID           deleteModels
// @Summary      Delete validation requests
// @Description  Deletes a comma-separated list of requests and their files
// @Tags         legacy
// @Produce      json
// @Param        ids path string true "Comma-separated request ids"
// @Success      200 {object} dto.BatchResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /delete/{ids} [post]
// @Router       /delete/{ids} [delete]
func (h *LegacyHandler) Delete(c *gin.Context) {
	var params IDsParam
	if err := c.ShouldBindUri(&params); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetCurrentUser(c), params.IDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBatchResponse(params.IDs))
}

// Revalidate godoc
// @ID           revalidateModels
// @Summary      Re-run validation
// @Description  Marks a comma-separated list of requests pending and submits them again
// @Tags         legacy
// @Produce      json
// @Param        ids path string true "Comma-separated request ids"
// @Success      200 {object} dto.BatchResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /revalidate/{ids} [post]
func (h *LegacyHandler) Revalidate(c *gin.Context) {
	var params IDsParam
	if err := c.ShouldBindUri(&params); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.service.Revalidate(c.Request.Context(), middleware.GetCurrentUser(c), params.IDs); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBatchResponse(params.IDs))
}

// Report godoc
// @ID           getReport
// @Summary      Validation report
// @Description  Detailed report of one request; unknown ids redirect to the dashboard
// @Tags         legacy
// @Produce      json
// @Param        id path int true "Validation request id"
// @Success      200 {object} appvalidation.Report
// @Router       /report2/{id} [get]
func (h *LegacyHandler) Report(c *gin.Context) {
	var params IDParam
	if err := c.ShouldBindUri(&params); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	report, err := h.service.Report(c.Request.Context(), middleware.GetCurrentUser(c), params.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			c.JSON(http.StatusOK, dto.NewDashboardRedirect())
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ReportError godoc
// @ID           reportError
// @Summary      Frontend error sink
// @Description  Accepts an error report from the frontend and replies OK
// @Tags         legacy
// @Produce      plain
// @Param        path path string true "Free-form path"
// @Success      200 {string} string "OK"
// @Router       /report_error/{path} [post]
func (h *LegacyHandler) ReportError(c *gin.Context) {
	logger.L(c.Request.Context()).Debug("Frontend reported an error",
		zap.String("path", c.Param("path")),
		zap.String("method", c.Request.Method),
	)
	c.String(http.StatusOK, "OK")
}
