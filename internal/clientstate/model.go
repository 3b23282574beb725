package clientstate

// Storage keys. The names match the browser client so exported state stays
// interchangeable.
const (
	KeyDraftResume         = "johny_cv_draft"
	KeyDraftJobDescription = "johny_jd"
	KeyResult              = "johny_result"
	KeyMasterResume        = "johny_master_cv"
	KeyHistory             = "johny_history_list"
)

// MaxHistory bounds the history list.
const MaxHistory = 10

// Status is the per-client request lifecycle.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusInFlight Status = "in_flight"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)

// HistoryEntry is one past optimization result. Entries are immutable once created.
type HistoryEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Label     string `json:"label"`
	Result    string `json:"result"`
}

// Snapshot is a point-in-time copy of a client's state.
type Snapshot struct {
	DraftResume         string         `json:"draftResume"`
	DraftJobDescription string         `json:"draftJobDescription"`
	MasterResume        string         `json:"masterResume"`
	HasMaster           bool           `json:"hasMaster"`
	Result              string         `json:"result"`
	History             []HistoryEntry `json:"history"`
	Status              Status         `json:"status"`
}
