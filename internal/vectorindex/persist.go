package vectorindex

import (
	"encoding/gob"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/memkit/memoryd/internal/errs"
	"github.com/memkit/memoryd/internal/types"
)

func init() {
	// Metadata values are JSON-shaped and travel through an
	// interface{}-typed map; gob requires every concrete type that can
	// appear behind an interface to be registered up front.
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
	gob.Register("")
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register(int64(0))
}

// persistMu serializes Persist calls across every Index instance sharing
// a process, matching the spec's "concurrent persist calls are
// serialized" requirement without needing per-index file locking.
var persistMu sync.Mutex

// indexImage is the gob-encoded vector payload.
type indexImage struct {
	Dim  int
	Docs []types.VectorDocument
}

// sidecarMeta is the JSON metadata file written alongside the gob image,
// kept human-inspectable for operational debugging.
type sidecarMeta struct {
	Dimension int `json:"dimension"`
	Count     int `json:"count"`
}

func imagePath(dir string) string  { return filepath.Join(dir, "vectors.gob") }
func sidecarPath(dir string) string { return filepath.Join(dir, "vectors.meta.json") }

// Persist atomically writes the index's vectors (gob) and a metadata
// sidecar (JSON) into dir, creating it if necessary.
func (idx *Index) Persist(dir string) error {
	persistMu.Lock()
	defer persistMu.Unlock()

	idx.mu.RLock()
	image := indexImage{Dim: idx.dim}
	for _, id := range idx.order {
		if doc, ok := idx.docs[id]; ok {
			image.Docs = append(image.Docs, doc)
		}
	}
	idx.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "vectorindex.persist", "failed to create persist directory", err)
	}

	if err := writeGobAtomic(imagePath(dir), image); err != nil {
		return errs.Wrap(errs.Internal, "vectorindex.persist", "failed to write vector image", err)
	}

	meta := sidecarMeta{Dimension: image.Dim, Count: len(image.Docs)}
	if err := writeJSONAtomic(sidecarPath(dir), meta); err != nil {
		return errs.Wrap(errs.Internal, "vectorindex.persist", "failed to write metadata sidecar", err)
	}
	return nil
}

// Load reinitializes the index from a directory previously written by
// Persist. Missing files produce an empty index; a corrupt metadata file
// is an error.
func Load(dir string, cfg Config) (*Index, error) {
	idx := New(cfg)

	metaBytes, err := os.ReadFile(sidecarPath(dir))
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "vectorindex.load", "failed to read metadata sidecar", err)
	}
	var meta sidecarMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, errs.Wrap(errs.Validation, "vectorindex.load", "corrupt metadata sidecar", err)
	}

	f, err := os.Open(imagePath(dir))
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "vectorindex.load", "failed to open vector image", err)
	}
	defer f.Close()

	var image indexImage
	if err := gob.NewDecoder(f).Decode(&image); err != nil {
		return nil, errs.Wrap(errs.Validation, "vectorindex.load", "corrupt vector image", err)
	}

	idx.dim = image.Dim
	if image.Dim > 0 {
		idx.state = stateFixed
	}
	for _, doc := range image.Docs {
		idx.docs[doc.ID] = doc
		idx.order = append(idx.order, doc.ID)
	}
	return idx, nil
}

func writeGobAtomic(path string, v interface{}) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
