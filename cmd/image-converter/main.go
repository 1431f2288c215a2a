package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/docmill/docmill/internal/engine"
	"github.com/docmill/docmill/internal/ledger"
	"github.com/docmill/docmill/internal/models"
	"github.com/docmill/docmill/internal/services"
)

var (
	converterInstance *services.ConverterFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the HTTP function with the framework.
	// "HandleConvertImages" is the entry point name configured in GCP.
	functions.HTTP("HandleConvertImages", handleConvertImages)
}

// main is required by the Go Functions Framework.
func main() {}

// handleConvertImages is the HTTP handler for the image conversion service.
func handleConvertImages(w http.ResponseWriter, r *http.Request) {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		converterInstance, initErr = services.NewConverter(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Converter initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := converterInstance.Process(r.Context(), &req)
	if err != nil {
		// The specific error is already logged inside the Process method.
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "userId", req.UserID)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}

// writeError maps an error to a structured JSON payload carrying its
// machine-checkable kind. Client errors get 400, everything else 500.
func writeError(w http.ResponseWriter, err error) {
	code := engine.Kind(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrUnavailable):
		code = "ledger_unavailable"
	case code != "internal_error":
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Error: err.Error(), Code: code})
}
