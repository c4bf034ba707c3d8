package cache

import (
	"Go2NetEntropy/internal/model"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotCached reports that no artifact has been persisted yet.
	ErrNotCached = errors.New("artifact not cached")
	// ErrCorrupt reports an artifact file that could not be decoded.
	ErrCorrupt = errors.New("artifact corrupt")
)

// Mode selects how GetOrCompute treats an existing artifact.
type Mode int

const (
	// UseCacheIfPresent returns the persisted artifact when there is one.
	UseCacheIfPresent Mode = iota
	// ForceRecompute always computes and overwrites the persisted artifact.
	ForceRecompute
)

func (m Mode) String() string {
	if m == ForceRecompute {
		return "force"
	}
	return "cache"
}

// Cache persists derived tables under rootPath, one directory per experiment.
type Cache struct {
	rootPath    string
	compression Compression
}

// New creates a cache rooted at rootPath using the named compression.
func New(rootPath, compression string) (*Cache, error) {
	comp, err := NewCompression(compression)
	if err != nil {
		return nil, err
	}
	return &Cache{rootPath: rootPath, compression: comp}, nil
}

// Path returns the file holding the artifact of the given kind.
func (c *Cache) Path(id model.ExperimentIdentity, kind model.ArtifactKind) string {
	key := id.Key()
	return filepath.Join(c.rootPath, key, fmt.Sprintf("%s_%s.csv%s", key, kind, c.compression.Ext()))
}

// Dir returns the directory holding every artifact of the experiment.
func (c *Cache) Dir(id model.ExperimentIdentity) string {
	return filepath.Join(c.rootPath, id.Key())
}

// Exists reports whether an artifact file is present, without decoding it.
func (c *Cache) Exists(id model.ExperimentIdentity, kind model.ArtifactKind) bool {
	info, err := os.Stat(c.Path(id, kind))
	return err == nil && info.Mode().IsRegular()
}

// Experiments lists the experiment keys that have at least one artifact.
func (c *Cache) Experiments() ([]string, error) {
	entries, err := os.ReadDir(c.rootPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var keys []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(c.rootPath, e.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if strings.HasPrefix(f.Name(), e.Name()+"_") && strings.HasSuffix(f.Name(), c.compression.Ext()) {
				keys = append(keys, e.Name())
				break
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Load decodes the persisted artifact. A missing file yields ErrNotCached and
// an undecodable one ErrCorrupt.
func Load[T any](c *Cache, id model.ExperimentIdentity, kind model.ArtifactKind, codec Codec[T]) (T, error) {
	var zero T
	path := c.Path(id, kind)

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return zero, fmt.Errorf("%s: %w", path, ErrNotCached)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to open artifact '%s': %w", path, err)
	}
	defer file.Close()

	r, err := c.compression.NewReader(bufio.NewReader(file))
	if err != nil {
		return zero, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	v, err := codec.Decode(r)
	if err != nil {
		return zero, fmt.Errorf("%s: %w: %v", path, ErrCorrupt, err)
	}
	return v, nil
}

// GetOrCompute returns the artifact of the given kind for id. Unless mode is
// ForceRecompute, a readable persisted artifact is returned without calling
// compute. Otherwise compute runs and its result is persisted before it is
// returned. Unreadable artifacts are treated as missing.
func GetOrCompute[T any](c *Cache, id model.ExperimentIdentity, kind model.ArtifactKind, codec Codec[T], compute func() (T, error), mode Mode) (T, error) {
	log := logrus.WithFields(logrus.Fields{"experiment": id.Key(), "kind": kind})

	if mode == UseCacheIfPresent {
		v, err := Load(c, id, kind, codec)
		switch {
		case err == nil:
			log.Debug("Loaded cached artifact")
			return v, nil
		case errors.Is(err, ErrNotCached):
			log.Debug("No cached artifact, computing")
		default:
			log.WithError(err).Warn("Discarding unreadable cached artifact")
		}
	}

	var zero T
	v, err := compute()
	if err != nil {
		return zero, err
	}

	if err := c.store(c.Path(id, kind), func(w io.Writer) error { return codec.Encode(w, v) }); err != nil {
		return zero, fmt.Errorf("failed to persist %s artifact for %s: %w", kind, id.Key(), err)
	}
	log.WithField("path", c.Path(id, kind)).Info("Saved artifact")
	return v, nil
}

// store writes the artifact next to its final location and renames it into
// place, so readers see either the old file or the complete new one.
func (c *Cache) store(path string, encode func(w io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary artifact: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	cw, err := c.compression.NewWriter(tmp)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(cw)
	if err = encode(bw); err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = cw.Close(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
