package transform

import (
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/catalog"
)

// Status is the outcome of one item in a run.
type Status string

const (
	// StatusSuccess means the record is complete.
	StatusSuccess Status = "success"

	// StatusDegraded means the record was emitted with missing detail or
	// unresolved references.
	StatusDegraded Status = "degraded"

	// StatusFailed means no record could be emitted.
	StatusFailed Status = "failed"
)

// ItemResult is the per-product outcome.
type ItemResult struct {
	ID         string `json:"id"`
	Handle     string `json:"handle"`
	Status     Status `json:"status"`
	Unresolved int    `json:"unresolved,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Counts aggregates item outcomes.
type Counts struct {
	Products      int `json:"products"`
	Success       int `json:"success"`
	Degraded      int `json:"degraded"`
	Failed        int `json:"failed"`
	Unresolved    int `json:"unresolved"`
	DirectFetches int `json:"directFetches"`
}

// Report describes a run so degraded runs are distinguishable from
// complete ones.
type Report struct {
	RunID        string           `json:"runId"`
	Strategy     catalog.Strategy `json:"strategy"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
	Truncated    bool             `json:"truncated"`
	MediaIndexed int              `json:"mediaIndexed"`
	Counts       Counts           `json:"counts"`
	Items        []ItemResult     `json:"items"`
}

// Degraded reports whether any item is not a full success, or the catalog
// was truncated.
func (r *Report) Degraded() bool {
	return r.Truncated || r.Counts.Degraded > 0 || r.Counts.Failed > 0
}

func (r *Report) add(item ItemResult) {
	r.Items = append(r.Items, item)
	r.Counts.Products++
	r.Counts.Unresolved += item.Unresolved
	switch item.Status {
	case StatusSuccess:
		r.Counts.Success++
	case StatusDegraded:
		r.Counts.Degraded++
	case StatusFailed:
		r.Counts.Failed++
	}
}
