package model

import "time"

// Severity classifies how serious a threshold violation is.
type Severity string

const (
	SevInfo     Severity = "info"
	SevWarning  Severity = "warning"
	SevCritical Severity = "critical"
)

// SevRank maps severity to a comparable integer for ordering.
var SevRank = map[Severity]int{
	SevInfo:     0,
	SevWarning:  1,
	SevCritical: 2,
}

// Operator is a numeric comparison in a threshold rule.
type Operator string

const (
	OpLT Operator = "<"
	OpLE Operator = "<="
	OpGT Operator = ">"
	OpGE Operator = ">="
	OpEQ Operator = "="
)

// ValidOperator reports whether op is one of the supported comparisons.
// "==" is accepted as an alias for "=".
func ValidOperator(op Operator) bool {
	switch op {
	case OpLT, OpLE, OpGT, OpGE, OpEQ, Operator("=="):
		return true
	}
	return false
}

// Tier is the approval classification of an action candidate.
// Green executes unattended, yellow needs one approval and is then
// reusable via a grant, red needs approval every time.
type Tier string

const (
	TierGreen  Tier = "green"
	TierYellow Tier = "yellow"
	TierRed    Tier = "red"
)

// ApprovalStatus is the lifecycle state of an approval queue item.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// RunStatus is the outcome of one pipeline invocation.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// MetricSnapshot is a timestamped set of metric values for one
// operational domain. Immutable once written; the latest snapshot per
// domain is authoritative for evaluation.
type MetricSnapshot struct {
	ID        int64
	Domain    string
	Metrics   map[string]float64
	CreatedAt time.Time
}

// ThresholdRule compares one metric against a fixed threshold.
// Configuration data; this subsystem only reads it.
type ThresholdRule struct {
	ID        int64
	Domain    string
	Metric    string
	Operator  Operator
	Threshold float64
	Severity  Severity
	Enabled   bool
}

// ActionCandidate is a normalized, derived record of one threshold
// violation. It is never persisted verbatim; its action key identifies
// the recurring policy decision point it represents.
type ActionCandidate struct {
	Domain    string   `json:"domain"`
	Metric    string   `json:"metric"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
	Operator  Operator `json:"operator"`
	Severity  Severity `json:"severity"`
	Source    string   `json:"source"`
}

// AlertEvent is one append-only alert log entry. Never mutated or
// deleted by this subsystem.
type AlertEvent struct {
	ID        string
	Domain    string
	Title     string
	Severity  Severity
	Source    string
	CreatedAt time.Time
}

// ApprovalItem is a durable human-review inbox entry. Created pending,
// decided exactly once.
type ApprovalItem struct {
	ID        string
	Title     string
	Domain    string
	Tier      Tier
	Status    ApprovalStatus
	ActionKey string
	Candidate ActionCandidate
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Grant is a persisted, reusable authorization for one action key.
// Monotonic boolean with idempotent upsert; last writer wins.
type Grant struct {
	ActionKey        string
	Active           bool
	SourceApprovalID string
	ApprovedAt       time.Time
}

// JobRun is one row per pipeline invocation, append-only.
type JobRun struct {
	ID         int64
	JobName    string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	DurationMs int64
	Details    string
}
