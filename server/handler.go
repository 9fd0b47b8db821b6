package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krau/nsfwdetector/ingest"
)

// InfoHandler godoc
// @Summary Service description
// @Tags Meta
// @Produce json
// @Success 200 {object} InfoResponse
// @Failure 401 {object} ErrorResponse
// @Router / [get]
// @Security APIKey
func (s *Server) InfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		Message:         "NSFW Detection API is running",
		Docs:            "/docs",
		PredictEndpoint: "/predict",
	})
}

// HealthHandler godoc
// @Summary Health and configured limits
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 401 {object} ErrorResponse
// @Router /health [get]
// @Security APIKey
func (s *Server) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:           "ok",
		ModelLoaded:      s.classifier != nil,
		MaxFileSize:      ingest.MaxFileSizeLabel(),
		SupportedFormats: ingest.SupportedFormats(),
	})
}

// VersionHandler godoc
// @Summary Application and model identity
// @Tags Meta
// @Produce json
// @Success 200 {object} VersionResponse
// @Failure 401 {object} ErrorResponse
// @Router /version [get]
// @Security APIKey
func (s *Server) VersionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{
		App:     AppName,
		Version: AppVersion,
		Model:   s.model,
	})
}

// PredictHandler godoc
// @Summary Classify an uploaded image
// @Tags Predict
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image (png, jpg, jpeg, gif, bmp, webp), at most 16MB"
// @Success 200 {object} PredictResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /predict [post]
// @Security APIKey
func (s *Server) PredictHandler(c *gin.Context) {
	filename, data, err := s.readFilePart(c)
	if err != nil {
		s.formError(c, err)
		return
	}

	img, format, err := ingest.Validate(filename, data)
	if err != nil {
		s.reject(c, err)
		return
	}

	start := time.Now()
	result, err := s.classifier.Classify(c.Request.Context(), img)
	if err != nil {
		slog.Error("Prediction failed",
			slog.String("error", err.Error()),
			slog.String("filename", filename),
			slog.String("request_id", c.GetString("request_id")),
		)
		s.metrics.RecordRejection("inference")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Detail: "Failed to process image"})
		return
	}
	s.metrics.RecordPrediction(result, time.Since(start))

	slog.Debug("Prediction done",
		slog.String("filename", filename),
		slog.String("format", format),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()),
	)
	c.JSON(http.StatusOK, PredictResponse{Filename: filename, Result: result})
}

var errMissingFile = errors.New("missing file part")

// readFilePart streams the multipart body up to the "file" part. The file
// name is checked before any of its content is read, and at most
// MaxFileSize+1 bytes are read so an oversized upload is still detectable.
func (s *Server) readFilePart(c *gin.Context) (string, []byte, error) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		return "", nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", nil, errMissingFile
		}
		if err != nil {
			return "", nil, err
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}
		defer part.Close()

		filename := part.FileName()
		if filename == "" {
			return "", nil, errMissingFile
		}
		if err := ingest.CheckExtension(filename); err != nil {
			return "", nil, err
		}
		data, err := io.ReadAll(io.LimitReader(part, ingest.MaxFileSize+1))
		if err != nil {
			return "", nil, err
		}
		return filename, data, nil
	}
}

// reject writes an ingest failure with its mapped status.
func (s *Server) reject(c *gin.Context, err error) {
	f, ok := ingest.AsFailure(err)
	if !ok {
		s.metrics.RecordRejection("unknown")
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
		return
	}
	slog.Warn("Upload rejected",
		slog.String("reason", f.Kind.String()),
		slog.String("error", f.Error()),
		slog.String("request_id", c.GetString("request_id")),
	)
	s.metrics.RecordRejection(f.Kind.String())
	c.JSON(statusFor(f.Kind), ErrorResponse{Detail: f.Detail})
}

func statusFor(k ingest.Kind) int {
	switch k {
	case ingest.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) formError(c *gin.Context, err error) {
	switch {
	case isFailure(err):
		s.reject(c, err)
	case errors.Is(err, errMissingFile) || errors.Is(err, http.ErrNotMultipart):
		s.metrics.RecordRejection("missing_file")
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Detail: "Field required: file"})
	default:
		slog.Warn("Invalid multipart form", slog.String("error", err.Error()))
		s.metrics.RecordRejection("bad_form")
		c.JSON(http.StatusBadRequest, ErrorResponse{Detail: "Invalid multipart form"})
	}
}

func isFailure(err error) bool {
	_, ok := ingest.AsFailure(err)
	return ok
}
