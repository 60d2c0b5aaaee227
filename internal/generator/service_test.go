package generator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casegen/internal/common/errors"
	"casegen/internal/common/logger"
	"casegen/internal/engine"
	"casegen/internal/placement"
	"casegen/pkg/engineprofile"
)

// --- pipeline fakes ---

type fakeReader struct {
	placements   []placement.Placement
	placementErr error
	floorPlan    *placement.FloorPlan
	resources    []placement.SymbolResource
}

func (f *fakeReader) PlacementsForRevision(ctx context.Context, id string) ([]placement.Placement, error) {
	if f.placementErr != nil {
		return nil, f.placementErr
	}
	return f.placements, nil
}

func (f *fakeReader) FloorPlanForRevision(ctx context.Context, id string) (*placement.FloorPlan, error) {
	return f.floorPlan, nil
}

func (f *fakeReader) SymbolsForPlacements(ctx context.Context, p []placement.Placement) ([]placement.SymbolResource, error) {
	return f.resources, nil
}

type fakeEngine struct {
	ensureErr error
	submitErr error
	ensures   int
	deletes   int
	submits   int
	lastAct   *engine.Activity
	lastArgs  map[string]engine.Argument
}

func (f *fakeEngine) EnsureActivity(ctx context.Context, act *engine.Activity) error {
	f.ensures++
	f.lastAct = act
	return f.ensureErr
}

func (f *fakeEngine) DeleteActivity(ctx context.Context, activityID string) error {
	f.deletes++
	return nil
}

func (f *fakeEngine) SubmitWorkItem(ctx context.Context, activityID string, args map[string]engine.Argument) (string, error) {
	f.submits++
	f.lastArgs = args
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "wi-1", nil
}

type fakeWaiter struct {
	err error
}

func (f *fakeWaiter) Wait(ctx context.Context, workItemID string, onTick func(time.Duration)) (*engine.WorkItemStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	if onTick != nil {
		onTick(2 * time.Second)
	}
	return &engine.WorkItemStatus{ID: workItemID, Status: engine.StatusSuccess}, nil
}

type fakeStager struct {
	stageErr error
	cleanups int
	lastName string
}

func (f *fakeStager) Stage(ctx context.Context, bucket, runID string, fp *placement.FloorPlan, scriptText string, res []placement.SymbolResource, outputFilename string) (*StagedInputs, error) {
	if f.stageErr != nil {
		return nil, f.stageErr
	}
	f.lastName = outputFilename
	urls := make(map[string]string)
	for i, slot := range engine.SymbolSlots(res) {
		urls[slot.Name] = fmt.Sprintf("https://sym/%d", i)
	}
	return &StagedInputs{
		BaseDrawingURL: "https://base",
		ScriptURL:      "https://script",
		ScriptKey:      "casegen/scratch/" + runID + ".scr",
		SymbolURLs:     urls,
		PlaceholderURL: "https://placeholder",
		OutputWriteURL: "https://out-put",
		OutputKey:      "casegen/generated/" + outputFilename,
	}, nil
}

func (f *fakeStager) CleanupScript(ctx context.Context, bucket string, staged *StagedInputs) {
	f.cleanups++
}

type fakeMaterializer struct {
	data        []byte
	fetchErr    error
	link        string
	relocateErr error
	relocates   int
}

func (f *fakeMaterializer) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.data, nil
}

func (f *fakeMaterializer) Relocate(ctx context.Context, bucket, key, folderID, filename string, data []byte) (string, error) {
	f.relocates++
	if f.relocateErr != nil {
		return "", f.relocateErr
	}
	return f.link, nil
}

type fakeLocker struct {
	err      error
	acquires int
	releases int
}

func (f *fakeLocker) Acquire(ctx context.Context, account string) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.acquires++
	return func() { f.releases++ }, nil
}

type progressRecorder struct {
	phases []string
}

func (r *progressRecorder) record(phase, message, detail string) {
	r.phases = append(r.phases, phase)
}

type fixture struct {
	reader       *fakeReader
	eng          *fakeEngine
	waiter       *fakeWaiter
	stager       *fakeStager
	materializer *fakeMaterializer
	locker       *fakeLocker
	svc          *Service
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		reader: &fakeReader{
			placements: []placement.Placement{
				{ID: "sp-1", ProductID: "prod-a", X: 1, Y: 2},
				{ID: "sp-2", ProductID: "prod-b", X: 3, Y: 4},
			},
			floorPlan: &placement.FloorPlan{StorageKey: "plans/base.dwg", FileName: "base.dwg"},
			resources: []placement.SymbolResource{
				{ProductID: "prod-a", StoragePath: "symbols/a.dwg", LocalName: "a.dwg", HasDrawing: true},
				{ProductID: "prod-b", HasDrawing: false},
			},
		},
		eng:          &fakeEngine{},
		waiter:       &fakeWaiter{},
		stager:       &fakeStager{},
		materializer: &fakeMaterializer{data: []byte("dwg-bytes"), link: "https://drive/view/1"},
		locker:       &fakeLocker{},
	}

	f.svc = NewService(ServiceParams{
		Reader:       f.reader,
		Engine:       f.eng,
		Monitor:      f.waiter,
		Stager:       f.stager,
		Materializer: f.materializer,
		Locker:       f.locker,
		Symbols:      testSymbolLibrary(),
		Profile:      engineprofile.DefaultProfile(),
		ActivityID:   "CaseStudyXrefActivity",
		Account:      "acct-1",
		Logger:       logger.NewTestLogger(t),
	})
	return f
}

func testRequest() Request {
	return Request{
		AreaRevisionID: "rev-42",
		ProjectID:      "proj-1",
		ProjectCode:    "ACME",
		AreaCode:       "L1",
		RevisionNumber: 3,
		BucketName:     "proj-bucket",
	}
}

func TestGenerate_Success(t *testing.T) {
	f := newFixture(t)
	rec := &progressRecorder{}

	result, err := f.svc.Generate(context.Background(), testRequest(), rec.record)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "ACME_L1_RV3.dwg", result.OutputFilename)
	assert.Equal(t, []byte("dwg-bytes"), result.OutputBytes)
	assert.Equal(t, []string{"prod-b"}, result.MissingSymbolProductIDs)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.DriveLink, "no drive folder requested")

	assert.Equal(t, 1, f.eng.ensures)
	assert.Equal(t, 1, f.eng.submits)
	assert.Equal(t, 1, f.eng.deletes, "activity removed after success")
	assert.Equal(t, 1, f.stager.cleanups)
	assert.Equal(t, 1, f.locker.acquires)
	assert.Equal(t, 1, f.locker.releases)
	assert.Equal(t, 0, f.materializer.relocates)

	// Phases arrive in pipeline order.
	assert.Equal(t, PhaseInit, rec.phases[0])
	assert.Contains(t, rec.phases, PhaseScript)
	assert.Contains(t, rec.phases, PhaseEngine)
	assert.Equal(t, PhaseDownload, rec.phases[len(rec.phases)-1])
}

func TestGenerate_OutputFilenameFlowsEverywhere(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Generate(context.Background(), testRequest(), nil)
	require.NoError(t, err)

	assert.Equal(t, "ACME_L1_RV3.dwg", f.stager.lastName)
	assert.Equal(t, "ACME_L1_RV3.dwg", f.eng.lastAct.Parameters[engine.SlotResult].LocalName)
}

func TestGenerate_EmptyRevisionCreatesNoRemoteState(t *testing.T) {
	f := newFixture(t)
	f.reader.placementErr = errors.NewEmptyInputError("areaRevisionId: rev-42")

	result, err := f.svc.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyInput))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)

	assert.Equal(t, 0, f.eng.ensures)
	assert.Equal(t, 0, f.eng.deletes, "nothing was created, nothing to delete")
	assert.Equal(t, 1, f.locker.releases, "lock released even on early failure")
}

func TestGenerate_RunLocked(t *testing.T) {
	f := newFixture(t)
	f.locker.err = errors.NewRunLockedError("acct-1")

	_, err := f.svc.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunLocked))
	assert.Equal(t, 0, f.eng.ensures)
}

func TestGenerate_ActivityDeletedOnSubmitFailure(t *testing.T) {
	f := newFixture(t)
	f.eng.submitErr = errors.NewExternalServiceError("engine", fmt.Errorf("quota exceeded"))

	_, err := f.svc.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)

	assert.Equal(t, 1, f.eng.ensures)
	assert.Equal(t, 1, f.eng.deletes, "cleanup runs even when submission fails")
	assert.Equal(t, 1, f.stager.cleanups)
	assert.Equal(t, 1, f.locker.releases)
}

func TestGenerate_ActivityDeletedOnJobFailure(t *testing.T) {
	f := newFixture(t)
	f.waiter.err = errors.NewJobFailedError("failedInstructions", "ERROR: bad xref")

	result, err := f.svc.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeJobFailed))
	assert.Contains(t, result.Errors[0], "bad xref")
	assert.Equal(t, 1, f.eng.deletes)
}

func TestGenerate_FailureKeepsMissingSymbolProducts(t *testing.T) {
	f := newFixture(t)
	f.waiter.err = errors.NewJobFailedError("failedInstructions", "ERROR: bad xref")

	result, err := f.svc.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)
	assert.False(t, result.Success)
	// prod-b has no symbol drawing; the placeholder fallback is reported
	// even when the run later fails.
	assert.Equal(t, []string{"prod-b"}, result.MissingSymbolProductIDs)
}

func TestGenerate_ActivityDeletedOnPollTimeout(t *testing.T) {
	f := newFixture(t)
	f.waiter.err = errors.NewPollTimeoutError(300, 10*time.Minute)

	_, err := f.svc.Generate(context.Background(), testRequest(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePollTimeout))
	assert.Equal(t, 1, f.eng.deletes)
}

func TestGenerate_RelocationFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.materializer.relocateErr = errors.NewRelocationFailedError(fmt.Errorf("drive quota"))
	rec := &progressRecorder{}

	req := testRequest()
	req.DriveFolderID = "folder-9"

	result, err := f.svc.Generate(context.Background(), req, rec.record)
	require.NoError(t, err, "a failed relocation does not fail the run")

	assert.True(t, result.Success)
	assert.Equal(t, []byte("dwg-bytes"), result.OutputBytes)
	assert.Empty(t, result.DriveLink)
	assert.Contains(t, result.RelocationError, "drive quota")
	assert.Equal(t, PhaseDrive, rec.phases[len(rec.phases)-1])
}

func TestGenerate_RelocationSuccess(t *testing.T) {
	f := newFixture(t)

	req := testRequest()
	req.DriveFolderID = "folder-9"

	result, err := f.svc.Generate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://drive/view/1", result.DriveLink)
	assert.Empty(t, result.RelocationError)
	assert.Equal(t, 1, f.materializer.relocates)
}

func TestGenerate_FloorPlanOverrideSkipsLookup(t *testing.T) {
	f := newFixture(t)
	f.reader.floorPlan = nil // lookup would nil-pointer if used

	req := testRequest()
	req.FloorPlanKey = "custom/plan.dwg"
	req.FloorPlanFilename = "plan.dwg"

	_, err := f.svc.Generate(context.Background(), req, nil)
	require.NoError(t, err)
}

func TestGenerate_NilProgressAllowed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), testRequest(), nil)
	assert.NoError(t, err)
}

func TestOutputFilename(t *testing.T) {
	assert.Equal(t, "ACME_L1_RV3.dwg", OutputFilename("ACME", "L1", 3))
	assert.Equal(t, "P_A_RV0.dwg", OutputFilename("P", "A", 0))
}
