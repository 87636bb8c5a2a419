package attachments

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/invoices"
	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/response"
	"github.com/vantage-crm/backend/pkg/storage"
)

// Handler issues presigned S3 URLs for invoice attachments. Keys are always
// built from the resolved organization id, so a presigned URL can never point
// into another tenant's prefix.
type Handler struct {
	repo     *Repository
	invoices *invoices.Repository
	s3       *storage.S3
	logger   *zap.Logger
}

// NewHandler creates an attachment handler.
func NewHandler(repo *Repository, invoiceRepo *invoices.Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, invoices: invoiceRepo, s3: s3, logger: logger}
}

type uploadURLRequest struct {
	FileName string `json:"file_name" binding:"required,min=1,max=255"`
}

// UploadURL handles POST /invoices/:id/attachments/upload-url. It returns a
// presigned PUT URL for direct upload and records the attachment.
func (h *Handler) UploadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Unavailable(c, "attachment storage is not configured")
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invoice id")
		return
	}
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !storage.ValidateAttachmentType(req.FileName) {
		response.BadRequest(c, "unsupported file type")
		return
	}

	orgID := tenant.OrgID(c)
	if _, err := h.invoices.GetByID(c.Request.Context(), orgID, invoiceID); err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			response.NotFound(c, "invoice not found")
			return
		}
		h.logger.Error("invoice lookup failed", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}

	att := &models.Attachment{
		ID:             uuid.New(),
		OrganizationID: orgID,
		InvoiceID:      invoiceID,
		FileName:       req.FileName,
		ContentType:    storage.ContentTypeForFilename(req.FileName),
	}
	att.S3Key = storage.AttachmentKey(orgID.String(), att.ID.String(), req.FileName)

	url, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), att.S3Key, att.ContentType, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("failed to presign upload", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}

	// Record metadata only after a successful presign so a storage failure
	// leaves no orphan row.
	if err := h.repo.Create(c.Request.Context(), att); err != nil {
		h.logger.Error("failed to record attachment", zap.Error(err))
		response.Internal(c, "failed to create upload url")
		return
	}
	response.Created(c, gin.H{"attachment": att, "upload_url": url})
}

// Upload handles POST /invoices/:id/attachments: a server-side multipart
// upload for clients that cannot PUT to a presigned URL directly.
func (h *Handler) Upload(c *gin.Context) {
	if h.s3 == nil {
		response.Unavailable(c, "attachment storage is not configured")
		return
	}
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invoice id")
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required")
		return
	}
	defer file.Close()
	if header.Size > storage.MaxAttachmentSize {
		response.BadRequest(c, "file exceeds the attachment size limit")
		return
	}
	if !storage.ValidateAttachmentType(header.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}

	orgID := tenant.OrgID(c)
	if _, err := h.invoices.GetByID(c.Request.Context(), orgID, invoiceID); err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			response.NotFound(c, "invoice not found")
			return
		}
		h.logger.Error("invoice lookup failed", zap.Error(err))
		response.Internal(c, "failed to upload attachment")
		return
	}

	att := &models.Attachment{
		ID:             uuid.New(),
		OrganizationID: orgID,
		InvoiceID:      invoiceID,
		FileName:       header.Filename,
		ContentType:    storage.ContentTypeForFilename(header.Filename),
	}
	att.S3Key = storage.AttachmentKey(orgID.String(), att.ID.String(), header.Filename)

	if _, err := h.s3.Upload(c.Request.Context(), att.S3Key, att.ContentType, file, header.Size); err != nil {
		h.logger.Error("failed to upload attachment", zap.Error(err))
		response.Internal(c, "failed to upload attachment")
		return
	}
	if err := h.repo.Create(c.Request.Context(), att); err != nil {
		h.logger.Error("failed to record attachment", zap.Error(err))
		response.Internal(c, "failed to upload attachment")
		return
	}
	response.Created(c, gin.H{"attachment": att})
}

// ListByInvoice handles GET /invoices/:id/attachments.
func (h *Handler) ListByInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invoice id")
		return
	}
	out, err := h.repo.ListByInvoice(c.Request.Context(), tenant.OrgID(c), invoiceID)
	if err != nil {
		h.logger.Error("failed to list attachments", zap.Error(err))
		response.Internal(c, "failed to list attachments")
		return
	}
	response.OK(c, out)
}

// DownloadURL handles GET /attachments/:id/download-url.
func (h *Handler) DownloadURL(c *gin.Context) {
	if h.s3 == nil {
		response.Unavailable(c, "attachment storage is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid attachment id")
		return
	}
	att, err := h.repo.GetByID(c.Request.Context(), tenant.OrgID(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "attachment not found")
			return
		}
		h.logger.Error("attachment lookup failed", zap.Error(err))
		response.Internal(c, "failed to create download url")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), att.S3Key, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("failed to presign download", zap.Error(err))
		response.Internal(c, "failed to create download url")
		return
	}
	response.OK(c, gin.H{"download_url": url, "file_name": att.FileName})
}

// Delete handles DELETE /attachments/:id. The metadata row goes first; a
// failed object delete leaves an unreferenced object and a warning, never a
// dangling row.
func (h *Handler) Delete(c *gin.Context) {
	if h.s3 == nil {
		response.Unavailable(c, "attachment storage is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid attachment id")
		return
	}
	att, err := h.repo.Delete(c.Request.Context(), tenant.OrgID(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "attachment not found")
			return
		}
		h.logger.Error("failed to delete attachment", zap.Error(err))
		response.Internal(c, "failed to delete attachment")
		return
	}
	if err := h.s3.DeleteObject(c.Request.Context(), att.S3Key); err != nil {
		h.logger.Warn("failed to delete attachment object",
			zap.String("s3_key", att.S3Key),
			zap.Error(err),
		)
	}
	response.NoContent(c)
}
