// Package httptransport exposes the generation pipeline over HTTP. The
// create endpoint streams newline-delimited JSON progress events followed
// by a final result event, so clients can show live phase updates over a
// single request.
package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
	"casegen/internal/common/validation"
	"casegen/internal/generator"
)

// generationSchema rejects malformed requests before the pipeline touches
// the database or the engine.
var generationSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"areaRevisionId", "projectCode", "areaCode", "revisionNumber", "bucketName"},
	"properties": map[string]interface{}{
		"areaRevisionId":    map[string]interface{}{"type": "string", "minLength": 1},
		"projectId":         map[string]interface{}{"type": "string"},
		"projectCode":       map[string]interface{}{"type": "string", "minLength": 1},
		"areaCode":          map[string]interface{}{"type": "string", "minLength": 1},
		"revisionNumber":    map[string]interface{}{"type": "integer", "minimum": float64(0)},
		"bucketName":        map[string]interface{}{"type": "string", "minLength": 1},
		"floorPlanKey":      map[string]interface{}{"type": "string"},
		"floorPlanFilename": map[string]interface{}{"type": "string"},
		"driveFolderId":     map[string]interface{}{"type": "string"},
	},
	"additionalProperties": false,
}

type generationDTO struct {
	AreaRevisionID    string `json:"areaRevisionId"`
	ProjectID         string `json:"projectId"`
	ProjectCode       string `json:"projectCode"`
	AreaCode          string `json:"areaCode"`
	RevisionNumber    int    `json:"revisionNumber"`
	BucketName        string `json:"bucketName"`
	FloorPlanKey      string `json:"floorPlanKey"`
	FloorPlanFilename string `json:"floorPlanFilename"`
	DriveFolderID     string `json:"driveFolderId"`
}

// streamEvent is one NDJSON line. Progress events carry phase and message;
// the closing event carries the result.
type streamEvent struct {
	Event   string            `json:"event"`
	Phase   string            `json:"phase,omitempty"`
	Message string            `json:"message,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	Result  *generator.Result `json:"result,omitempty"`
}

// Generator is the pipeline surface the handler drives.
type Generator interface {
	Generate(ctx context.Context, req generator.Request, progress generator.ProgressFunc) (*generator.Result, error)
}

type Handler struct {
	svc    Generator
	logger logger.Logger
}

func NewHandler(svc Generator, log logger.Logger) *Handler {
	return &Handler{svc: svc, logger: log.WithFields(map[string]interface{}{"component": "http"})}
}

// CreateGeneration validates the request, runs the pipeline, and streams
// progress as NDJSON. Errors after streaming begins arrive as the final
// event rather than an HTTP status: the status line is long gone by then.
func (h *Handler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	check, err := validation.ValidateAgainstSchema(raw, generationSchema)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "validation unavailable")
		return
	}
	if !check.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, apiError{
			Message: "invalid generation request",
			Code:    string(errors.ErrCodeValidation),
			Details: check.ErrorStrings(),
		})
		return
	}

	var dto generationDTO
	rawBytes, _ := json.Marshal(raw)
	if err := json.Unmarshal(rawBytes, &dto); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request shape")
		return
	}

	req := generator.Request{
		AreaRevisionID:    dto.AreaRevisionID,
		ProjectID:         dto.ProjectID,
		ProjectCode:       dto.ProjectCode,
		AreaCode:          dto.AreaCode,
		RevisionNumber:    dto.RevisionNumber,
		BucketName:        dto.BucketName,
		FloorPlanKey:      dto.FloorPlanKey,
		FloorPlanFilename: dto.FloorPlanFilename,
		DriveFolderID:     dto.DriveFolderID,
	}

	// Programmatic clients can opt out of streaming and get a single JSON
	// document with a meaningful status code.
	if r.Header.Get("Accept") == "application/json" {
		result, runErr := h.svc.Generate(r.Context(), req, nil)
		if runErr != nil {
			h.logFailure(dto.AreaRevisionID, runErr)
			writeJSON(w, statusForError(runErr), apiError{
				Message: runErr.Error(),
				Code:    string(errors.CodeOf(runErr)),
			})
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	emit := func(ev streamEvent) {
		if err := enc.Encode(ev); err != nil {
			h.logger.Warn("progress write failed", map[string]interface{}{"error": err.Error()})
			return
		}
		flusher.Flush()
	}

	result, runErr := h.svc.Generate(r.Context(), req, func(phase, message, detail string) {
		emit(streamEvent{Event: "progress", Phase: phase, Message: message, Detail: detail})
	})

	if runErr != nil {
		h.logFailure(dto.AreaRevisionID, runErr)
	}
	emit(streamEvent{Event: "result", Result: result})
}

func (h *Handler) logFailure(areaRevisionID string, err error) {
	h.logger.Error("generation failed", map[string]interface{}{
		"areaRevisionId": areaRevisionID,
		"code":           string(errors.CodeOf(err)),
		"error":          err.Error(),
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
