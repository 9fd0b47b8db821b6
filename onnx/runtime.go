package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

var defaultLibPaths = map[string][]string{
	"linux": {
		"onnxlibs/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
	},
	"darwin": {
		"onnxlibs/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
		"/opt/homebrew/lib/libonnxruntime.dylib",
	},
	"windows": {
		"onnxlibs/onnxruntime.dll",
	},
}

// LibPath picks the ONNX Runtime shared library: the configured path when
// set, otherwise the first platform default that exists.
func LibPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	for _, p := range defaultLibPaths[runtime.GOOS] {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("ONNX Runtime library path could not be determined for %s", runtime.GOOS)
}

// Init loads the shared library and initializes the process-wide environment.
// The returned func tears it down.
func Init(configured string) (func(), error) {
	path, err := LibPath(configured)
	if err != nil {
		return nil, err
	}
	slog.Info("Using ONNX Runtime library", slog.String("path", path))

	ort.SetSharedLibraryPath(path)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX Runtime environment: %w", err)
	}
	return func() {
		if err := ort.DestroyEnvironment(); err != nil {
			slog.Error("Failed to destroy ONNX Runtime environment", slog.String("error", err.Error()))
		}
	}, nil
}
