package validation

import (
	"sync"

	"github.com/Joel785/Medallion-Project/pkg/models"
)

// Index is the identifier state a batch is validated against: the Silver
// keys present at batch start plus the rows accepted so far in the batch.
// Kinds of one stage write to disjoint entries concurrently.
type Index struct {
	mu       sync.RWMutex
	existing map[models.Kind]map[int64]struct{}
	batch    map[models.Kind]map[int64]string
}

// NewIndex seeds the index from the Silver keys at batch start.
func NewIndex(existing map[models.Kind][]int64) *Index {
	ix := &Index{
		existing: make(map[models.Kind]map[int64]struct{}, len(existing)),
		batch:    make(map[models.Kind]map[int64]string),
	}
	for kind, ids := range existing {
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		ix.existing[kind] = set
	}
	return ix
}

// Has reports whether id of kind is in Silver or accepted in this batch.
func (ix *Index) Has(kind models.Kind, id int64) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if _, ok := ix.existing[kind][id]; ok {
		return true
	}
	_, ok := ix.batch[kind][id]
	return ok
}

func (ix *Index) acceptedInBatch(kind models.Kind, id int64) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	fp, ok := ix.batch[kind][id]
	return fp, ok
}

func (ix *Index) accept(kind models.Kind, id int64, fingerprint string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	m, ok := ix.batch[kind]
	if !ok {
		m = make(map[int64]string)
		ix.batch[kind] = m
	}
	m[id] = fingerprint
}

// Accepted returns how many distinct identifiers of kind the batch accepted.
func (ix *Index) Accepted(kind models.Kind) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.batch[kind])
}
