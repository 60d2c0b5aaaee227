package generator

import (
	"context"
	"fmt"
	"time"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
	"casegen/internal/engine"
	"casegen/internal/placement"
	"casegen/internal/storage"
)

// StagedInputs holds every URL the work item is bound to.
type StagedInputs struct {
	BaseDrawingURL string
	ScriptURL      string
	ScriptKey      string
	SymbolURLs     map[string]string // slot name -> public library URL
	PlaceholderURL string
	OutputWriteURL string
	OutputKey      string
}

// Stager moves run inputs into remote-fetchable locations and prepares the
// output location. Symbol drawings are never copied: their long-lived
// public library URLs are handed to the engine as-is.
type Stager struct {
	store   storage.ObjectStore
	symbols *storage.SymbolLibrary
	expiry  time.Duration
	logger  logger.Logger
}

func NewStager(store storage.ObjectStore, symbols *storage.SymbolLibrary, expiry time.Duration, log logger.Logger) *Stager {
	return &Stager{
		store:   store,
		symbols: symbols,
		expiry:  expiry,
		logger:  log.WithFields(map[string]interface{}{"component": "stager"}),
	}
}

func scriptKey(runID string) string {
	return fmt.Sprintf("casegen/scratch/%s.scr", runID)
}

func outputKey(outputFilename string) string {
	return fmt.Sprintf("casegen/generated/%s", outputFilename)
}

// Stage prepares all input URLs and the signed output location. The script
// upload runs concurrently with the signing of the base-drawing and output
// URLs; the calls touch distinct object keys and share no state. The
// engine writes the result straight to its final key, so there is no
// intermediate output staging and re-upload.
func (s *Stager) Stage(
	ctx context.Context,
	bucket, runID string,
	floorPlan *placement.FloorPlan,
	scriptText string,
	resources []placement.SymbolResource,
	outputFilename string,
) (*StagedInputs, error) {
	staged := &StagedInputs{
		ScriptKey:  scriptKey(runID),
		OutputKey:  outputKey(outputFilename),
		SymbolURLs: make(map[string]string),
	}

	scriptDone := make(chan error, 1)
	go func() {
		if err := s.store.Upload(ctx, bucket, staged.ScriptKey, []byte(scriptText)); err != nil {
			scriptDone <- errors.NewIOError("upload script "+staged.ScriptKey, err)
			return
		}
		url, err := s.store.PresignGet(ctx, bucket, staged.ScriptKey, s.expiry)
		if err != nil {
			scriptDone <- errors.NewIOError("sign script read "+staged.ScriptKey, err)
			return
		}
		staged.ScriptURL = url
		scriptDone <- nil
	}()

	// Base drawing is already resident; only a read URL is minted.
	baseURL, err := s.store.PresignGet(ctx, bucket, floorPlan.StorageKey, s.expiry)
	if err != nil {
		<-scriptDone
		return nil, errors.NewIOError("sign base drawing read "+floorPlan.StorageKey, err)
	}
	staged.BaseDrawingURL = baseURL

	// Symbol URLs point at secondary storage; building them is pure.
	i := 0
	for _, res := range resources {
		if !res.HasDrawing {
			continue
		}
		staged.SymbolURLs[engine.SymbolSlotName(i)] = s.symbols.URLFor(res)
		i++
	}
	staged.PlaceholderURL = s.symbols.PlaceholderURL()

	writeURL, err := s.store.PresignPut(ctx, bucket, staged.OutputKey, s.expiry)
	if err != nil {
		<-scriptDone
		return nil, errors.NewIOError("sign output write "+staged.OutputKey, err)
	}
	staged.OutputWriteURL = writeURL

	if err := <-scriptDone; err != nil {
		return nil, err
	}

	s.logger.Debug("inputs staged", map[string]interface{}{
		"bucket":    bucket,
		"symbols":   len(staged.SymbolURLs),
		"outputKey": staged.OutputKey,
	})

	return staged, nil
}

// Arguments binds the staged URLs to the activity's slots.
func (s *StagedInputs) Arguments() map[string]engine.Argument {
	args := map[string]engine.Argument{
		engine.SlotBaseDrawing: {URL: s.BaseDrawingURL, Verb: "get"},
		engine.SlotScript:      {URL: s.ScriptURL, Verb: "get"},
		engine.SlotResult:      {URL: s.OutputWriteURL, Verb: "put"},
		engine.SlotPlaceholder: {URL: s.PlaceholderURL, Verb: "get"},
	}
	for slot, url := range s.SymbolURLs {
		args[slot] = engine.Argument{URL: url, Verb: "get"}
	}
	return args
}

// CleanupScript removes the scratch script object. Best effort.
func (s *Stager) CleanupScript(ctx context.Context, bucket string, staged *StagedInputs) {
	if staged == nil || staged.ScriptKey == "" {
		return
	}
	if err := s.store.Remove(ctx, bucket, staged.ScriptKey); err != nil {
		s.logger.Warn("scratch script cleanup failed", map[string]interface{}{
			"key":   staged.ScriptKey,
			"error": err.Error(),
		})
	}
}
