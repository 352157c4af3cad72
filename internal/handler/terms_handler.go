package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"loanterms/internal/domain"
	"loanterms/internal/export"
	"loanterms/internal/ocrtext"
	"loanterms/internal/service"
)

// TermsHandler handles extraction and record endpoints.
type TermsHandler struct {
	termsService service.TermsService
	maxBodyBytes int64
}

// NewTermsHandler creates a new TermsHandler. maxBodyBytes <= 0 disables the
// request body limit.
func NewTermsHandler(termsService service.TermsService, maxBodyBytes int64) *TermsHandler {
	return &TermsHandler{termsService: termsService, maxBodyBytes: maxBodyBytes}
}

func (h *TermsHandler) decodeBody(c *gin.Context) (domain.OCRDocument, bool) {
	body := c.Request.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodyBytes)
	}
	doc, err := ocrtext.DecodeDocument(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body exceeds maximum allowed size")
			return doc, false
		}
		HandleError(c, err)
		return doc, false
	}
	return doc, true
}

// Extract handles POST /api/v1/extractions
// The body is an OCR analysis result. With ?persist=false the record is only
// returned, never stored or archived.
// @Summary Extract loan terms from an OCR document
// @Description Flattens the OCR result, extracts the contract fields with the language model and assembles the output record. The record is stored unless persist=false.
// @Tags extractions
// @Accept json
// @Produce json
// @Param request body domain.OCRDocument true "OCR analysis result"
// @Param persist query bool false "Store and archive the record" default(true)
// @Success 201 {object} APIResponse{data=domain.OutputRecord} "Record extracted and stored"
// @Success 200 {object} APIResponse{data=domain.OutputRecord} "Record extracted"
// @Failure 400 {object} APIResponse "Invalid OCR document"
// @Failure 413 {object} APIResponse "Request body too large"
// @Failure 429 {object} APIResponse "Extraction provider rate limited"
// @Failure 502 {object} APIResponse "Extraction failed"
// @Security BearerAuth
// @Router /extractions [post]
func (h *TermsHandler) Extract(c *gin.Context) {
	doc, ok := h.decodeBody(c)
	if !ok {
		return
	}

	if c.Query("persist") == "false" {
		rec, err := h.termsService.Extract(c.Request.Context(), doc)
		if err != nil {
			HandleError(c, err)
			return
		}
		RespondOK(c, rec)
		return
	}

	result, err := h.termsService.Process(c.Request.Context(), doc)
	if err != nil {
		HandleError(c, err)
		return
	}
	respondResult(c, result)
}

// ExtractObjectRequest names an OCR result held in object storage. An empty
// Bucket means the configured input bucket.
type ExtractObjectRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key" binding:"required"`
}

// ExtractObject handles POST /api/v1/extractions/object
// @Summary Extract loan terms from a stored OCR document
// @Description Reads the OCR result from object storage and runs the same pipeline as POST /extractions.
// @Tags extractions
// @Accept json
// @Produce json
// @Param request body ExtractObjectRequest true "Object location"
// @Success 201 {object} APIResponse{data=domain.OutputRecord} "Record extracted and stored"
// @Success 200 {object} APIResponse{data=domain.OutputRecord} "Record extracted"
// @Failure 400 {object} APIResponse "Invalid request or OCR document"
// @Failure 404 {object} APIResponse "Object not found"
// @Failure 501 {object} APIResponse "Object storage not configured"
// @Failure 502 {object} APIResponse "Extraction failed"
// @Security BearerAuth
// @Router /extractions/object [post]
func (h *TermsHandler) ExtractObject(c *gin.Context) {
	var req ExtractObjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "key is required")
		return
	}

	result, err := h.termsService.ProcessObject(c.Request.Context(), req.Bucket, req.Key)
	if err != nil {
		HandleError(c, err)
		return
	}
	respondResult(c, result)
}

func respondResult(c *gin.Context, result *service.ExtractionResult) {
	c.Header("X-Extraction-Run-ID", result.RunID)
	if result.Stored {
		RespondCreated(c, result.Record)
		return
	}
	RespondOK(c, result.Record)
}

// Preview handles POST /api/v1/extractions/preview
// @Summary Preview the flattened document text
// @Description Returns the flattened text and contact fields without calling the language model.
// @Tags extractions
// @Accept json
// @Produce json
// @Param request body domain.OCRDocument true "OCR analysis result"
// @Success 200 {object} APIResponse{data=domain.FlattenResult} "Flattened text and contact info"
// @Failure 400 {object} APIResponse "Invalid OCR document"
// @Failure 413 {object} APIResponse "Request body too large"
// @Security BearerAuth
// @Router /extractions/preview [post]
func (h *TermsHandler) Preview(c *gin.Context) {
	doc, ok := h.decodeBody(c)
	if !ok {
		return
	}
	RespondOK(c, h.termsService.Preview(doc))
}

// ListRecords handles GET /api/v1/records
// @Summary List stored records
// @Tags records
// @Produce json
// @Param offset query int false "Pagination offset" default(0)
// @Param limit query int false "Page size (max 100)" default(20)
// @Success 200 {object} APIResponse{data=[]domain.TermRecord,meta=PagMeta} "Records"
// @Failure 501 {object} APIResponse "Record store not configured"
// @Security BearerAuth
// @Router /records [get]
func (h *TermsHandler) ListRecords(c *gin.Context) {
	offset, limit := parsePagination(c)

	records, total, err := h.termsService.ListRecords(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	if records == nil {
		records = []domain.TermRecord{}
	}
	RespondPaginated(c, records, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetRecord handles GET /api/v1/records/:id
// @Summary Get a stored record
// @Tags records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} APIResponse{data=domain.TermRecord} "Record"
// @Failure 404 {object} APIResponse "Record not found"
// @Security BearerAuth
// @Router /records/{id} [get]
func (h *TermsHandler) GetRecord(c *gin.Context) {
	rec, err := h.termsService.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, rec)
}

// DeleteRecord handles DELETE /api/v1/records/:id
// @Summary Delete a stored record
// @Tags records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} APIResponse "Record deleted"
// @Failure 404 {object} APIResponse "Record not found"
// @Security BearerAuth
// @Router /records/{id} [delete]
func (h *TermsHandler) DeleteRecord(c *gin.Context) {
	if err := h.termsService.DeleteRecord(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "record deleted"})
}

// Export handles GET /api/v1/records/export?format=xlsx|csv
// @Summary Export stored records
// @Description Downloads every stored record as an Excel workbook or a CSV file.
// @Tags records
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param format query string true "Export format" Enums(xlsx, csv)
// @Success 200 {file} file "Export file"
// @Failure 400 {object} APIResponse "Unknown format"
// @Failure 501 {object} APIResponse "Record store not configured"
// @Security BearerAuth
// @Router /records/export [get]
func (h *TermsHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "format must be 'xlsx' or 'csv'")
		return
	}

	var buf bytes.Buffer
	if err := h.termsService.ExportRecords(c.Request.Context(), &buf, format); err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("loan-terms", format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
