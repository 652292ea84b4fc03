package vectorindex

import (
	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/types"
)

// Add inserts a single document, fixing the index's dimension if this is
// the first insert ever made.
func (idx *Index) Add(doc types.VectorDocument) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.addLocked(doc)
}

func (idx *Index) addLocked(doc types.VectorDocument) error {
	if err := idx.checkOpen(); err != nil {
		return err
	}
	wantDim := idx.dim
	if idx.state == stateEmpty {
		wantDim = 0
	}
	if err := validateVector(doc.Vector, wantDim); err != nil {
		return err
	}
	if doc.ID == "" {
		return errs.New(errs.Validation, "vectorindex.add", "document id cannot be empty")
	}

	if idx.state == stateEmpty {
		idx.dim = len(doc.Vector)
		idx.state = stateFixed
	}

	if _, exists := idx.docs[doc.ID]; !exists {
		idx.order = append(idx.order, doc.ID)
	}
	idx.docs[doc.ID] = doc
	return nil
}

// BatchError describes one document that failed validation during a
// partial-batch Add or Upsert.
type BatchError struct {
	ID    string
	Error string
}

// AddBatchResult reports the outcome of AddBatch.
type AddBatchResult struct {
	Inserted []string
	Errors   []BatchError
}

// AddBatch inserts every document. Unless the index was constructed with
// AllowPartialBatch, any invalid document fails the entire batch and
// nothing is committed.
func (idx *Index) AddBatch(docs []types.VectorDocument) (AddBatchResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkOpen(); err != nil {
		return AddBatchResult{}, err
	}

	if !idx.cfg.AllowPartialBatch {
		wantDim := idx.dim
		if idx.state == stateEmpty && len(docs) > 0 {
			wantDim = len(docs[0].Vector)
		}
		for _, doc := range docs {
			if err := validateOne(doc, wantDim); err != nil {
				return AddBatchResult{}, err
			}
		}
		var result AddBatchResult
		for _, doc := range docs {
			if err := idx.addLocked(doc); err != nil {
				return AddBatchResult{}, err
			}
			result.Inserted = append(result.Inserted, doc.ID)
		}
		return result, nil
	}

	var result AddBatchResult
	for _, doc := range docs {
		if err := idx.addLocked(doc); err != nil {
			result.Errors = append(result.Errors, BatchError{ID: doc.ID, Error: err.Error()})
			continue
		}
		result.Inserted = append(result.Inserted, doc.ID)
	}
	return result, nil
}

func validateOne(doc types.VectorDocument, wantDim int) error {
	if doc.ID == "" {
		return errs.New(errs.Validation, "vectorindex.add_batch", "document id cannot be empty")
	}
	return validateVector(doc.Vector, wantDim)
}

// UpsertResult partitions an UpsertBatch call's ids by whether they
// already existed.
type UpsertResult struct {
	Updated  []string
	Inserted []string
}

// UpsertBatch inserts or overwrites every document, atomically: either
// all documents are committed or, on the first validation failure, none
// are.
func (idx *Index) UpsertBatch(docs []types.VectorDocument) (UpsertResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.checkOpen(); err != nil {
		return UpsertResult{}, err
	}

	wantDim := idx.dim
	if idx.state == stateEmpty && len(docs) > 0 {
		wantDim = len(docs[0].Vector)
	}
	for _, doc := range docs {
		if err := validateOne(doc, wantDim); err != nil {
			return UpsertResult{}, err
		}
	}

	var result UpsertResult
	for _, doc := range docs {
		_, existed := idx.docs[doc.ID]
		if err := idx.addLocked(doc); err != nil {
			return UpsertResult{}, err
		}
		if existed {
			result.Updated = append(result.Updated, doc.ID)
		} else {
			result.Inserted = append(result.Inserted, doc.ID)
		}
	}
	return result, nil
}

// Get returns one document, or (nil, nil) if absent.
func (idx *Index) Get(id string) (*types.VectorDocument, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}
	doc, ok := idx.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

// GetBatch returns every present document among ids; missing ids are
// silently skipped.
func (idx *Index) GetBatch(ids []string) ([]types.VectorDocument, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}
	var out []types.VectorDocument
	for _, id := range ids {
		if doc, ok := idx.docs[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// GetByFilter returns documents matching filter, in insertion order,
// honoring an optional offset/limit window.
func (idx *Index) GetByFilter(filter types.VectorFilter, offset, limit int) ([]types.VectorDocument, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}

	var matched []types.VectorDocument
	for _, id := range idx.order {
		doc, ok := idx.docs[id]
		if !ok {
			continue
		}
		if filter.Matches(doc) {
			matched = append(matched, doc)
		}
	}

	if offset > 0 {
		if offset >= len(matched) {
			return nil, nil
		}
		matched = matched[offset:]
	}
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// Delete removes one document. Deleting an absent id is not an error.
func (idx *Index) Delete(id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.checkOpen(); err != nil {
		return err
	}
	idx.deleteLocked(id)
	return nil
}

func (idx *Index) deleteLocked(id string) {
	if _, ok := idx.docs[id]; !ok {
		return
	}
	delete(idx.docs, id)
	for i, oid := range idx.order {
		if oid == id {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			break
		}
	}
}

// DeleteBatchResult partitions a DeleteBatch call's ids by presence.
type DeleteBatchResult struct {
	Deleted  []string
	NotFound []string
}

// DeleteBatch removes every id present in the index, atomically: the
// whole batch applies or (on the single possible failure mode, the index
// being closed) none of it does.
func (idx *Index) DeleteBatch(ids []string) (DeleteBatchResult, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.checkOpen(); err != nil {
		return DeleteBatchResult{}, err
	}

	var result DeleteBatchResult
	for _, id := range ids {
		if _, ok := idx.docs[id]; ok {
			result.Deleted = append(result.Deleted, id)
		} else {
			result.NotFound = append(result.NotFound, id)
		}
	}
	for _, id := range result.Deleted {
		idx.deleteLocked(id)
	}
	return result, nil
}

// DeleteByFilter removes every document matching filter, returning the
// count removed.
func (idx *Index) DeleteByFilter(filter types.VectorFilter) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.checkOpen(); err != nil {
		return 0, err
	}

	var toDelete []string
	for _, id := range idx.order {
		if doc, ok := idx.docs[id]; ok && filter.Matches(doc) {
			toDelete = append(toDelete, id)
		}
	}
	for _, id := range toDelete {
		idx.deleteLocked(id)
	}
	return len(toDelete), nil
}
