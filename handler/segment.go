package handler

import (
	"errors"
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaos-io/maskswap/config"
	"github.com/chaos-io/maskswap/model"
	"github.com/chaos-io/maskswap/segment"
	"github.com/chaos-io/maskswap/service"
	"github.com/chaos-io/maskswap/util"
	"github.com/gin-gonic/gin"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

const (
	fieldOriginal    = "original"
	fieldMask        = "mask"
	fieldReplacement = "replacement"
)

// errBadUpload marks a file that was sent but cannot be used.
var errBadUpload = errors.New("bad upload")

type SegmentHandler struct {
	cfg     *config.UploadConfig
	service *service.SegmentService
}

func NewSegmentHandler(cfg *config.UploadConfig, svc *service.SegmentService) *SegmentHandler {
	return &SegmentHandler{
		cfg:     cfg,
		service: svc,
	}
}

// Segment handles POST /api/v1/segment. Any of the three files may be
// missing; the pipeline decides what that means.
func (h *SegmentHandler) Segment(c *gin.Context) {
	var (
		images = make(map[string]image.Image, 3)
		raw    [][]byte
	)
	for _, field := range []string{fieldOriginal, fieldMask, fieldReplacement} {
		data, img, err := h.readImage(c, field)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, errBadUpload) {
				status = http.StatusBadRequest
			}
			util.Logger.Warn("failed to read upload", zap.String("field", field), zap.Error(err))
			c.JSON(status, service.FailureResponse("", segment.Message{
				Severity: segment.SeverityError,
				Text:     fmt.Sprintf("Invalid %s image: %v", field, err),
			}))
			return
		}
		images[field] = img
		raw = append(raw, []byte(field), data)
	}

	editor := segment.EditorValue{Background: images[fieldOriginal]}
	if layer := segment.CoverageLayer(images[fieldMask]); layer != nil {
		editor.Layers = []image.Image{layer}
	}

	md5 := util.BytesMD5(raw...)
	res, err := h.service.Process(c.Request.Context(), md5, editor, images[fieldReplacement])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrBusy) {
			status = http.StatusServiceUnavailable
		}
		util.Logger.Error("failed to process segmentation", zap.String("md5", md5), zap.Error(err))
		c.JSON(status, service.FailureResponse(md5, segment.Message{
			Severity: segment.SeverityError,
			Text:     fmt.Sprintf("Segmentation error: %v", err),
		}))
		return
	}

	c.JSON(statusOf(res.Outcome.Err), res.Response)
}

// Result handles GET /api/v1/result/:md5.
func (h *SegmentHandler) Result(c *gin.Context) {
	md5 := c.Param("md5")
	if md5 == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "md5 is required",
		})
		return
	}

	resp, err := h.service.Lookup(c.Request.Context(), md5)
	if err != nil {
		util.Logger.Error("failed to get segment result", zap.String("md5", md5), zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "Lookup failed",
			Error:   err.Error(),
		})
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "No result for " + md5,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func statusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, segment.ErrMissingInput), errors.Is(err, segment.ErrEmptyPrompt):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// readImage spools one multipart file, reads it back and decodes it.
// A missing field yields nil data and a nil image.
func (h *SegmentHandler) readImage(c *gin.Context, field string) ([]byte, image.Image, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: %w", errBadUpload, err)
	}

	if file.Size > h.cfg.MaxSize {
		return nil, nil, fmt.Errorf("%w: file exceeds %d MB", errBadUpload, h.cfg.MaxSize/(1024*1024))
	}

	data, err := h.spool(c, file)
	if err != nil {
		return nil, nil, err
	}

	if contentType := http.DetectContentType(data); !h.isAllowedType(contentType) {
		return nil, nil, fmt.Errorf("%w: unsupported file type %s", errBadUpload, contentType)
	}

	img, err := util.DecodeImage(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errBadUpload, err)
	}
	return data, img, nil
}

// spool saves the upload under a ksuid name, reads it back and removes it.
func (h *SegmentHandler) spool(c *gin.Context, file *multipart.FileHeader) ([]byte, error) {
	path := filepath.Join(h.cfg.SpoolDir, ksuid.New().String()+strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, path); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			util.Logger.Warn("failed to delete spooled file", zap.String("file", path), zap.Error(err))
		}
	}()

	return os.ReadFile(path)
}

func (h *SegmentHandler) isAllowedType(contentType string) bool {
	for _, allowed := range h.cfg.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
