/*
drafts.go - Server-side working state for in-progress jobs

PURPOSE:
  Holds the parts ledger a technician edits while a job is in progress.
  The draft is scratch state: it is never persisted, and it is discarded
  when the report commits (the report freezes its own snapshot) or when
  the job is cancelled.

CONCURRENCY:
  The registry mutex guards the map; each draft carries its own mutex
  because PartsLedger is not goroutine-safe. Handlers take the draft lock
  for the duration of a mutation.
*/
package api

import (
	"sync"

	"github.com/voltano/fieldservice/maintenance"
)

// draft is the mutable working state for one in-progress job.
type draft struct {
	mu     sync.Mutex
	ledger *maintenance.PartsLedger
}

// DraftRegistry maps jobs to their in-progress drafts.
type DraftRegistry struct {
	mu     sync.Mutex
	drafts map[maintenance.JobID]*draft
}

func NewDraftRegistry() *DraftRegistry {
	return &DraftRegistry{drafts: make(map[maintenance.JobID]*draft)}
}

// get returns the draft for a job, creating an empty one on first touch.
func (r *DraftRegistry) get(id maintenance.JobID) *draft {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drafts[id]
	if !ok {
		d = &draft{ledger: maintenance.NewPartsLedger()}
		r.drafts[id] = d
	}
	return d
}

// discard drops the draft for a job. Called on report commit and on cancel.
func (r *DraftRegistry) discard(id maintenance.JobID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
}

// lines returns a snapshot of the draft's part lines without holding the
// draft lock past the copy.
func (r *DraftRegistry) lines(id maintenance.JobID) []maintenance.PartUsageLine {
	d := r.get(id)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ledger.Lines()
}
