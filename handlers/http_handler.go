package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	logger "github.com/Yulian302/lfusys-services-media/commons/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/services"
	"github.com/Yulian302/lfusys-services-media/validation"
	"github.com/gin-gonic/gin"
)

type HttpHandler struct {
	uploads   services.UploadService
	multipart services.MultipartService

	logger logger.Logger
}

func NewHttpHandler(uploads services.UploadService, multipart services.MultipartService, l logger.Logger) *HttpHandler {
	return &HttpHandler{
		uploads:   uploads,
		multipart: multipart,
		logger:    l,
	}
}

func (h *HttpHandler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api/upload")

	api.GET("", h.Presign)
	api.POST("", h.UploadDirect)

	api.POST("/large-file", h.InitLargeFile)
	api.GET("/large-file", h.LargeFileStatus)

	mp := api.Group("/multipart")
	mp.POST("/init", h.InitMultipart)
	mp.POST("/part-url", h.PartURL)
	mp.POST("/complete", h.CompleteMultipart)
	mp.POST("/abort", h.AbortMultipart)
}

func (h *HttpHandler) Presign(c *gin.Context) {
	var req models.PresignRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	resp, err := h.uploads.IssuePresignedURL(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "presign", err)
		return
	}
	respondOK(c, resp, "Presigned URL generated")
}

// directUploadFormOverhead leaves room for the form fields and part headers
// around a file at the generic video cap.
const directUploadFormOverhead = 1 << 20

func (h *HttpHandler) UploadDirect(c *gin.Context) {
	const maxBody = validation.MaxGenericVideo + directUploadFormOverhead

	if c.Request.ContentLength > maxBody {
		respondServiceError(c, validation.TooLarge(c.Request.ContentLength, validation.MaxGenericVideo))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondServiceError(c, validation.TooLarge(0, validation.MaxGenericVideo))
			return
		}
		respondServiceError(c, validation.Missing("file"))
		return
	}

	req := models.DirectUploadRequest{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Folder:      strings.TrimSpace(c.PostForm("folder")),
		UploaderID:  strings.TrimSpace(c.PostForm("uploaderId")),
	}

	if raw := c.PostForm("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Metadata); err != nil {
			respondServiceError(c, &validation.Error{
				Code:    validation.InvalidValue,
				Field:   "metadata",
				Message: "metadata must be a JSON object of strings",
			})
			return
		}
	}

	// no content type allows more than the video cap
	if fileHeader.Size > validation.MaxGenericVideo {
		respondServiceError(c, validation.TooLarge(fileHeader.Size, validation.MaxGenericVideo))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.fail(c, "direct_upload", err)
		return
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, validation.MaxGenericVideo+1))
	if err != nil {
		h.fail(c, "direct_upload", err)
		return
	}
	req.Body = body

	resp, err := h.uploads.UploadDirect(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "direct_upload", err)
		return
	}
	respondOK(c, resp, "File uploaded successfully")
}

func (h *HttpHandler) InitLargeFile(c *gin.Context) {
	var req models.InitUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.uploads.InitLargeFile(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "large_file_init", err)
		return
	}
	respondOK(c, resp, "")
}

func (h *HttpHandler) LargeFileStatus(c *gin.Context) {
	resp, err := h.uploads.GetStatus(c.Request.Context(), c.Query("fileKey"))
	if err != nil {
		h.fail(c, "status", err)
		return
	}
	respondOK(c, resp, "")
}

func (h *HttpHandler) InitMultipart(c *gin.Context) {
	var req models.InitUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.multipart.Initiate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "multipart_init", err)
		return
	}
	respondOK(c, resp, "")
}

func (h *HttpHandler) PartURL(c *gin.Context) {
	var req models.PartURLRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.multipart.PartURL(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "multipart_part_url", err)
		return
	}
	respondOK(c, resp, "")
}

func (h *HttpHandler) CompleteMultipart(c *gin.Context) {
	var req models.CompleteUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.multipart.Complete(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "multipart_complete", err)
		return
	}
	respondOK(c, resp, "Upload completed successfully")
}

func (h *HttpHandler) AbortMultipart(c *gin.Context) {
	var req models.AbortUploadRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.multipart.Abort(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "multipart_abort", err)
		return
	}
	respondOK(c, resp, "Upload aborted")
}

func (h *HttpHandler) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Debug("malformed request body", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *HttpHandler) fail(c *gin.Context, op string, err error) {
	if !validation.IsValidationError(err) {
		h.logger.Error("upload operation failed", "operation", op, "request_id", c.GetString("request_id"), "error", err)
	}
	respondServiceError(c, err)
}
