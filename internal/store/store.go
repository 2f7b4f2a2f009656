package store

// DefaultDBPath is the default relative path for the SQLite DB.
// Resolve against cwd; Open() creates the parent dir (e.g. .amesreg).
const DefaultDBPath = ".amesreg/runs.db"

// Run is one completed analysis run.
type Run struct {
	ID          int64
	DatasetPath string
	Response    string
	Seed        uint64
	Replicates  int
	Threshold   float64
	LogResponse bool
	BoxCoxLow   float64
	BoxCoxHigh  float64
	LambdaMin   float64
	LambdaMed   float64
	LambdaMax   float64
	CreatedAt   string
}

// TermFrequency is one term's bootstrap selection frequency within a run.
type TermFrequency struct {
	RunID     int64
	Term      string
	Frequency float64
	Selected  bool
}

// Metric is one named evaluation metric within a run.
type Metric struct {
	RunID int64
	Name  string
	Value float64
}

// Store is the persistence facade for runs and their per-term and
// per-metric detail. CLI and pipeline use only this interface; the
// implementation is SQLite or in-memory.
type Store interface {
	SaveRun(run *Run, freqs []TermFrequency, metrics []Metric) (runID int64, err error)
	GetRun(runID int64) (*Run, error)
	ListRuns() ([]*Run, error)
	FrequenciesForRun(runID int64) ([]TermFrequency, error)
	MetricsForRun(runID int64) ([]Metric, error)
	Close() error
}
