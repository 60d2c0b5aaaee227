package engine

// Parameter declares one input or output slot of an activity.
type Parameter struct {
	Verb        string `json:"verb"` // get | put
	LocalName   string `json:"localName,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Description string `json:"description,omitempty"`
}

// Activity is a reusable remote job template: the engine invocation plus
// its declared input/output slots. The slot set is rebuilt per run because
// the number of symbol inputs varies with the placement data.
type Activity struct {
	ID          string               `json:"id"`
	CommandLine []string             `json:"commandLine"`
	Engine      string               `json:"engine"`
	Parameters  map[string]Parameter `json:"parameters"`
	Description string               `json:"description,omitempty"`
}

// Argument binds one activity slot to a concrete URL for a work item.
type Argument struct {
	URL       string            `json:"url"`
	Verb      string            `json:"verb"` // get | put
	LocalName string            `json:"localName,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	Optional  bool              `json:"optional,omitempty"`
}

// WorkItemStatus is the polled state of one job instance.
type WorkItemStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ReportURL string `json:"reportUrl,omitempty"`
	Stats     struct {
		TimeQueued   string `json:"timeQueued,omitempty"`
		TimeStarted  string `json:"timeDownloadStarted,omitempty"`
		TimeFinished string `json:"timeFinished,omitempty"`
	} `json:"stats,omitempty"`
}

// Work item status values used by the monitor's state machine. Anything
// terminal that is not StatusSuccess is treated as failure.
const (
	StatusPending    = "pending"
	StatusInProgress = "inprogress"
	StatusSuccess    = "success"
)

// IsTerminal reports whether the status will not change on further polls.
func IsTerminal(status string) bool {
	return status != StatusPending && status != StatusInProgress
}
