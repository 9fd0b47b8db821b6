package server

import "github.com/krau/nsfwdetector/classifier"

const (
	AppName    = "nsfw-detector"
	AppVersion = "1.0"

	APIKeyHeader    = "X-API-Key"
	RequestIDHeader = "X-Request-ID"
)

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type InfoResponse struct {
	Message         string `json:"message"`
	Docs            string `json:"docs"`
	PredictEndpoint string `json:"predict_endpoint"`
}

type HealthResponse struct {
	Status           string   `json:"status"`
	ModelLoaded      bool     `json:"model_loaded"`
	MaxFileSize      string   `json:"max_file_size"`
	SupportedFormats []string `json:"supported_formats"`
}

type VersionResponse struct {
	App     string `json:"app"`
	Version string `json:"version"`
	Model   string `json:"model"`
}

type PredictResponse struct {
	Filename string            `json:"filename"`
	Result   classifier.Result `json:"result"`
}
