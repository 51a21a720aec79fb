package core

import (
	"time"
)

// EmailRecord represents one extracted email message
type EmailRecord struct {
	UID     string `json:"uid"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Date    string `json:"date,omitempty"`
}

// Label is the three-way classification outcome for an email
type Label int

const (
	// LabelUnknown marks a verdict decoded from an unrecognized wire code
	LabelUnknown Label = iota
	// LabelLegitimate marks an email classified as legitimate
	LabelLegitimate
	// LabelPhishing marks an email classified as phishing
	LabelPhishing
	// LabelSuspicious marks an email demoted by confidence gating or empty content
	LabelSuspicious
)

// String returns the human-readable form of the label
func (l Label) String() string {
	switch l {
	case LabelLegitimate:
		return "legitimate"
	case LabelPhishing:
		return "phishing"
	case LabelSuspicious:
		return "suspicious"
	default:
		return "unknown"
	}
}

// VerdictSource records what was fed to the oracle, for audit purposes
type VerdictSource struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender,omitempty"`
}

// Verdict represents the classification outcome for one email
type Verdict struct {
	UID        string        `json:"uid"`
	Label      Label         `json:"-"`
	Confidence float64       `json:"confidence"`
	Message    string        `json:"message"`
	Source     VerdictSource `json:"input_source"`
}

// BatchSummary tallies the labels produced for one batch
type BatchSummary struct {
	Total      int `json:"total"`
	Phishing   int `json:"phishing"`
	Legitimate int `json:"legitimate"`
	Suspicious int `json:"suspicious"`
}

// MutationOp identifies one kind of mailbox mutation
type MutationOp int

const (
	// OpMarkFlagged sets the flagged marker on a message
	OpMarkFlagged MutationOp = iota
	// OpMoveToFolder moves a message into the named folder
	OpMoveToFolder
	// OpAddLabel attaches the named label to a message
	OpAddLabel
	// OpRemoveLabel detaches the named label from a message
	OpRemoveLabel
	// OpDeletePermanently expunges a message from the mailbox
	OpDeletePermanently
)

// String returns the human-readable form of the operation
func (op MutationOp) String() string {
	switch op {
	case OpMarkFlagged:
		return "mark_flagged"
	case OpMoveToFolder:
		return "move_to_folder"
	case OpAddLabel:
		return "add_label"
	case OpRemoveLabel:
		return "remove_label"
	case OpDeletePermanently:
		return "delete_permanently"
	default:
		return "unknown"
	}
}

// Mutation is one mailbox mutation request for one message
type Mutation struct {
	UID  string
	Op   MutationOp
	Name string
}

// ActionResult accumulates per-item outcomes for one action pass
type ActionResult struct {
	Applied   map[string]bool
	Succeeded int
	Failed    int
}

// CacheEntry is a cached oracle score keyed by a digest of the scored text
type CacheEntry struct {
	Digest     string
	Prediction int
	Confidence float64
	ScoredAt   time.Time
	ExpiresAt  time.Time
}
