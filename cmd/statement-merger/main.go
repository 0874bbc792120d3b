package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/resumeintake/internal/models"
	"github.com/Lllllllleong/resumeintake/internal/services"
)

var (
	mergerInstance *services.StatementMergerFunction
	once           sync.Once
	initErr        error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleMergeStatements", handleMergeStatements)
}

func main() {}

// handleMergeStatements is the HTTP handler for the statement merging service.
func handleMergeStatements(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		mergerInstance, initErr = services.NewStatementMerger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Statement merger initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.MergeStatementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := mergerInstance.Process(r.Context(), &req)
	if err != nil {
		// Error is already logged with context in the Process method.
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(services.StatusCode(err))
		_ = json.NewEncoder(w).Encode(&models.ErrorResponse{Status: "error", Message: services.UserMessage(err)})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error(
			"Failed to write response",
			"error", err,
			"candidateId", req.CandidateID,
			"section", req.Section,
		)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
