// Package generator runs the case-study drawing pipeline end to end: read
// placements, render the command script, stage inputs, drive the remote
// engine, and materialize the result.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
	"casegen/internal/common/metrics"
	"casegen/internal/common/observability"
	"casegen/internal/engine"
	"casegen/internal/notify"
	"casegen/internal/placement"
	"casegen/internal/script"
	"casegen/internal/storage"
	"casegen/pkg/engineprofile"
)

// cleanupTimeout bounds the deferred teardown work so a cancelled run
// context cannot leave remote state behind.
const cleanupTimeout = 30 * time.Second

// DataReader resolves a revision's placements, floor plan and symbols.
type DataReader interface {
	PlacementsForRevision(ctx context.Context, areaRevisionID string) ([]placement.Placement, error)
	FloorPlanForRevision(ctx context.Context, areaRevisionID string) (*placement.FloorPlan, error)
	SymbolsForPlacements(ctx context.Context, placements []placement.Placement) ([]placement.SymbolResource, error)
}

// EngineAPI is the slice of the engine client the pipeline drives.
type EngineAPI interface {
	EnsureActivity(ctx context.Context, act *engine.Activity) error
	DeleteActivity(ctx context.Context, activityID string) error
	SubmitWorkItem(ctx context.Context, activityID string, args map[string]engine.Argument) (string, error)
}

// JobWaiter blocks until the submitted work item reaches a terminal state.
type JobWaiter interface {
	Wait(ctx context.Context, workItemID string, onTick func(elapsed time.Duration)) (*engine.WorkItemStatus, error)
}

// InputStager prepares the remote-fetchable input and output locations.
type InputStager interface {
	Stage(ctx context.Context, bucket, runID string, floorPlan *placement.FloorPlan, scriptText string, resources []placement.SymbolResource, outputFilename string) (*StagedInputs, error)
	CleanupScript(ctx context.Context, bucket string, staged *StagedInputs)
}

// ResultMaterializer retrieves and optionally relocates the finished drawing.
type ResultMaterializer interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	Relocate(ctx context.Context, bucket, key, folderID, filename string, data []byte) (string, error)
}

// Locker serializes runs sharing one engine account.
type Locker interface {
	Acquire(ctx context.Context, account string) (func(), error)
}

// Service orchestrates one generation run per Generate call. Safe for
// concurrent use; per-run state lives on the stack.
type Service struct {
	reader       DataReader
	eng          EngineAPI
	monitor      JobWaiter
	stager       InputStager
	materializer ResultMaterializer
	locker       Locker
	symbols      *storage.SymbolLibrary
	profile      *engineprofile.Profile
	notifier     *notify.Notifier
	obs          *observability.Observability
	activityID   string
	account      string
	logger       logger.Logger
}

type ServiceParams struct {
	Reader       DataReader
	Engine       EngineAPI
	Monitor      JobWaiter
	Stager       InputStager
	Materializer ResultMaterializer
	Locker       Locker
	Symbols      *storage.SymbolLibrary
	Profile      *engineprofile.Profile
	Notifier     *notify.Notifier
	Observer     *observability.Observability
	ActivityID   string
	Account      string
	Logger       logger.Logger
}

func NewService(p ServiceParams) *Service {
	return &Service{
		reader:       p.Reader,
		eng:          p.Engine,
		monitor:      p.Monitor,
		stager:       p.Stager,
		materializer: p.Materializer,
		locker:       p.Locker,
		symbols:      p.Symbols,
		profile:      p.Profile,
		notifier:     p.Notifier,
		obs:          p.Observer,
		activityID:   p.ActivityID,
		account:      p.Account,
		logger:       p.Logger.WithFields(map[string]interface{}{"component": "generator"}),
	}
}

// Generate runs the full pipeline. The returned Result is populated on
// every path; the error is non-nil only when the run produced no drawing.
// Progress events fire synchronously in pipeline order; a nil progress
// function is allowed.
func (s *Service) Generate(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(string, string, string) {}
	}

	start := time.Now()
	metrics.GenerationsStarted.Inc()

	// run returns a partial result even on failure so fields accumulated
	// before the error, the missing-symbol list in particular, survive.
	result, err := s.run(ctx, req, progress)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		code := errors.CodeOf(err)
		metrics.GenerationsFailed.WithLabelValues(string(code)).Inc()
		result.Success = false
		result.Errors = []string{err.Error()}
	}
	metrics.GenerationsCompleted.WithLabelValues(outcome).Inc()
	if s.obs != nil {
		s.obs.RecordRunProcessed(ctx, outcome)
		s.obs.RecordRunDuration(ctx, time.Since(start), outcome)
	}

	s.notifier.NotifyRunFinished(ctx, notify.RunSummary{
		ProjectCode:           req.ProjectCode,
		AreaCode:              req.AreaCode,
		RevisionNumber:        req.RevisionNumber,
		Success:               result.Success,
		OutputFilename:        result.OutputFilename,
		DriveLink:             result.DriveLink,
		MissingSymbolProducts: result.MissingSymbolProductIDs,
		Errors:                result.Errors,
	})

	s.logger.Info("generation finished", map[string]interface{}{
		"areaRevisionId": req.AreaRevisionID,
		"outcome":        outcome,
		"durationMs":     time.Since(start).Milliseconds(),
	})

	return result, err
}

func (s *Service) run(ctx context.Context, req Request, progress ProgressFunc) (*Result, error) {
	result := &Result{Errors: []string{}}
	outputFilename := OutputFilename(req.ProjectCode, req.AreaCode, req.RevisionNumber)
	runID := uuid.New().String()
	log := s.logger.WithFields(map[string]interface{}{
		"runId":          runID,
		"areaRevisionId": req.AreaRevisionID,
	})

	progress(PhaseInit, "preparing run", outputFilename)

	release, err := s.locker.Acquire(ctx, s.account)
	if err != nil {
		return result, err
	}
	defer release()

	// Read everything up front: a revision with no placements must fail
	// before any remote state is created.
	phaseStart := time.Now()
	placements, err := s.reader.PlacementsForRevision(ctx, req.AreaRevisionID)
	if err != nil {
		return result, err
	}

	floorPlan := &placement.FloorPlan{StorageKey: req.FloorPlanKey, FileName: req.FloorPlanFilename}
	if floorPlan.StorageKey == "" {
		floorPlan, err = s.reader.FloorPlanForRevision(ctx, req.AreaRevisionID)
		if err != nil {
			return result, err
		}
	}

	resources, err := s.reader.SymbolsForPlacements(ctx, placements)
	if err != nil {
		return result, err
	}
	observePhase(PhaseInit, phaseStart)

	var missing []string
	localNames := make(map[string]string, len(resources))
	for _, res := range resources {
		if res.HasDrawing {
			localNames[res.ProductID] = res.LocalName
		} else {
			localNames[res.ProductID] = s.symbols.PlaceholderLocalName()
			missing = append(missing, res.ProductID)
		}
	}
	result.MissingSymbolProductIDs = missing
	metrics.MissingSymbols.Observe(float64(len(missing)))
	if len(missing) > 0 {
		log.Warn("products without symbol drawings fall back to the placeholder", map[string]interface{}{
			"count":      len(missing),
			"productIds": missing,
		})
	}

	phaseStart = time.Now()
	progress(PhaseScript, "rendering command script", fmt.Sprintf("%d placements", len(placements)))
	xrefs := make([]script.XrefPlacement, 0, len(placements))
	for _, p := range placements {
		xrefs = append(xrefs, script.XrefPlacement{
			Placement: p,
			Path:      localNames[p.ProductID],
		})
	}
	scriptText := script.Generate(xrefs, script.Metadata{
		OutputFilename: outputFilename,
		ProjectLabel:   req.ProjectCode,
		AreaLabel:      req.AreaCode,
		RevisionLabel:  fmt.Sprintf("RV%d", req.RevisionNumber),
		SaveFormat:     s.profile.SaveFormat,
	})
	observePhase(PhaseScript, phaseStart)

	phaseStart = time.Now()
	progress(PhaseEngine, "staging inputs", "")
	staged, err := s.stager.Stage(ctx, req.BucketName, runID, floorPlan, scriptText, resources, outputFilename)
	if err != nil {
		return result, err
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		s.stager.CleanupScript(cleanupCtx, req.BucketName, staged)
	}()

	slots := engine.SymbolSlots(resources)
	activity := engine.BuildActivity(s.activityID, s.profile, outputFilename, slots, s.symbols.PlaceholderLocalName())

	// The activity is deleted on every outcome, including submit and poll
	// failures. Registered before creation: a half-created definition must
	// not survive to conflict with the next run.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if delErr := s.eng.DeleteActivity(cleanupCtx, s.activityID); delErr != nil {
			log.Warn("activity cleanup failed", map[string]interface{}{
				"activityId": s.activityID,
				"error":      delErr.Error(),
			})
		}
	}()

	if err := s.eng.EnsureActivity(ctx, activity); err != nil {
		return result, err
	}

	progress(PhaseEngine, "submitting work item", "")
	workItemID, err := s.eng.SubmitWorkItem(ctx, s.activityID, staged.Arguments())
	if err != nil {
		return result, err
	}
	log.Info("work item running", map[string]interface{}{"workItemId": workItemID})

	status, err := s.monitor.Wait(ctx, workItemID, func(elapsed time.Duration) {
		progress(PhaseEngine, "work item in progress", elapsed.Round(time.Second).String())
	})
	if err != nil {
		return result, err
	}
	observePhase(PhaseEngine, phaseStart)
	log.Info("work item finished", map[string]interface{}{
		"workItemId": workItemID,
		"status":     status.Status,
	})

	phaseStart = time.Now()
	progress(PhaseDownload, "downloading drawing", outputFilename)
	data, err := s.materializer.Fetch(ctx, req.BucketName, staged.OutputKey)
	if err != nil {
		return result, err
	}
	observePhase(PhaseDownload, phaseStart)

	result.Success = true
	result.OutputBytes = data
	result.OutputFilename = outputFilename

	if req.DriveFolderID != "" {
		phaseStart = time.Now()
		progress(PhaseDrive, "relocating to drive storage", req.DriveFolderID)
		link, relErr := s.materializer.Relocate(ctx, req.BucketName, staged.OutputKey, req.DriveFolderID, outputFilename, data)
		observePhase(PhaseDrive, phaseStart)
		if relErr != nil {
			// The drawing itself is good; the run degrades instead of
			// failing.
			result.RelocationError = relErr.Error()
			progress(PhaseDrive, "relocation failed, drawing kept in bucket", relErr.Error())
			log.Warn("relocation failed", map[string]interface{}{"error": relErr.Error()})
		} else {
			result.DriveLink = link
		}
	}

	return result, nil
}

func observePhase(phase string, start time.Time) {
	metrics.PhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
