package checkpoint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/golang/glog"
)

const (
	CheckpointPrefix = "checkpoint_"
	ModelPrefix      = "model_save_"
	// NumCheckpoints is the retention to pass as Store.Keep to hold on to
	// more than the newest checkpoint.
	NumCheckpoints = 3

	timestampFmt = "2006-01-02 15:04:05.000000"
	tempPrefix   = ".tmp-" + ModelPrefix
)

var errNotRegular = errors.New("not a regular file")

// Store saves and restores checkpoints below Root.
type Store struct {
	// Root is the directory holding the checkpoint_<model type> directories.
	// Empty means the working directory.
	Root string
	// Keep is how many checkpoint files survive a Save. Zero keeps one.
	Keep int

	now func() time.Time
}

// Dir returns the checkpoint directory for modelType.
func (s *Store) Dir(modelType string) string {
	root := s.Root
	if root == "" {
		root = "."
	}
	return filepath.Join(root, CheckpointPrefix+modelType)
}

// CreateDir creates the checkpoint directory for modelType and its parents.
// It is not an error for the directory to exist already.
func (s *Store) CreateDir(modelType string) (string, error) {
	dir := s.Dir(modelType)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("unable to create checkpoint directory %q: %w", dir, err)
	}
	return dir, nil
}

// Files lists the checkpoint files in dir. A missing dir has no files.
func (s *Store) Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), ModelPrefix) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// Save writes a new checkpoint for modelType and then removes older
// checkpoint files beyond the retention limit.
//
// The new file is fully written under a temporary name and renamed into
// place before anything is removed.
func (s *Store) Save(modelType string, moduleState, optimiserState []byte, epoch int) error {
	dir, err := s.CreateDir(modelType)
	if err != nil {
		return err
	}
	filename := filepath.Join(dir, ModelPrefix+s.clock().Format(timestampFmt))

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("unable to create temporary checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	tmp.Close()

	c := &Checkpoint{
		ModuleState:    moduleState,
		OptimiserState: optimiserState,
		Epoch:          epoch,
	}
	if err := c.Save(tmpName); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filename); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("unable to move checkpoint into place: %w", err)
	}
	glog.V(1).Infof("saved checkpoint for epoch %d to %q", epoch, filename)

	// The new checkpoint is in place; failing to rotate out old ones does
	// not fail the save.
	if err := s.prune(dir, filename); err != nil {
		glog.Warningf("unable to prune old checkpoints in %q: %s", dir, err)
	}
	return nil
}

// TryRestore loads the newest checkpoint for modelType onto module and
// optimiser. ok is false when there is no checkpoint, in which case neither
// loader is touched.
func (s *Store) TryRestore(modelType string, module, optimiser StateLoader) (epoch int, ok bool, err error) {
	files, err := s.Files(s.Dir(modelType))
	if err != nil {
		return 0, false, err
	}
	if len(files) == 0 {
		return 0, false, nil
	}
	ordered, err := newestFirst(files)
	if err != nil {
		return 0, false, err
	}
	c, err := Load(ordered[0])
	if err != nil {
		return 0, false, err
	}
	epoch, err = c.Restore(module, optimiser)
	if err != nil {
		return 0, false, err
	}
	glog.Infof("restored checkpoint %q (epoch %d)", ordered[0], epoch)
	return epoch, true, nil
}

func (s *Store) prune(dir, current string) error {
	keep := s.Keep
	if keep < 1 {
		keep = 1
	}
	files, err := s.Files(dir)
	if err != nil {
		return err
	}
	ordered, err := newestFirst(files)
	if err != nil {
		return err
	}

	kept := 1 // current
	for _, f := range ordered {
		if f == current {
			continue
		}
		if kept < keep {
			kept++
			continue
		}
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("unable to remove old checkpoint %q: %w", f, err)
		}
	}
	return nil
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// newestFirst orders checkpoint files by modification time, newest first.
// Equal times fall back to the file name, which embeds the save timestamp.
func newestFirst(files []string) ([]string, error) {
	type entry struct {
		path  string
		mtime time.Time
	}
	entries := make([]entry, 0, len(files))
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%q: %w", f, errNotRegular)
		}
		entries = append(entries, entry{path: f, mtime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].mtime.Equal(entries[j].mtime) {
			return entries[i].mtime.After(entries[j].mtime)
		}
		return entries[i].path > entries[j].path
	})
	ordered := make([]string, len(entries))
	for i, e := range entries {
		ordered[i] = e.path
	}
	return ordered, nil
}
