package generator

import "fmt"

// Progress phases, in pipeline order. Callers stream these to end users,
// so names and ordering are part of the contract.
const (
	PhaseInit     = "init"
	PhaseScript   = "script"
	PhaseEngine   = "aps"
	PhaseDownload = "download"
	PhaseDrive    = "drive"
)

// ProgressFunc receives phase events synchronously, in the exact order the
// pipeline executes them.
type ProgressFunc func(phase, message, detail string)

// Request describes one generation run.
type Request struct {
	AreaRevisionID string
	ProjectID      string
	ProjectCode    string
	AreaCode       string
	RevisionNumber int

	// BucketName is the project bucket, provisioned by the project
	// management subsystem.
	BucketName string

	// Optional floor-plan override. When empty the reader resolves the
	// revision's stored reference.
	FloorPlanKey      string
	FloorPlanFilename string

	// DriveFolderID selects the long-term destination. Empty means the
	// artifact stays in the bucket only.
	DriveFolderID string
}

// Result is the externally visible outcome of a run. Immutable once
// returned. Partial success (missing symbols, failed relocation) shows up
// in its own fields, never overloaded onto Errors.
type Result struct {
	Success                 bool     `json:"success"`
	OutputBytes             []byte   `json:"-"`
	OutputFilename          string   `json:"outputFilename,omitempty"`
	DriveLink               string   `json:"driveLink,omitempty"`
	MissingSymbolProductIDs []string `json:"missingSymbolProductIds,omitempty"`
	RelocationError         string   `json:"relocationError,omitempty"`
	Errors                  []string `json:"errors"`
}

// OutputFilename renders the downstream-parsed artifact name. The format
// is consumed by other systems; reproduce it exactly.
func OutputFilename(projectCode, areaCode string, revisionNumber int) string {
	return fmt.Sprintf("%s_%s_RV%d.dwg", projectCode, areaCode, revisionNumber)
}
