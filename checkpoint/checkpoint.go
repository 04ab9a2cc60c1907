// Package checkpoint persists and restores training state.
//
// A checkpoint is a (module state, optimiser state, epoch) triple. The
// states are opaque byte blobs produced by the caller; this package never
// looks inside them. Checkpoints live in one directory per model type:
//
//	<root>/checkpoint_<model type>/model_save_<timestamp>
package checkpoint

import (
	"encoding/gob"
	"fmt"
	"os"
)

// StateLoader is implemented by the live objects a checkpoint is restored
// onto. LoadState is expected to do its own shape checks.
type StateLoader interface {
	LoadState(state []byte) error
}

// Checkpoint is one saved training state.
type Checkpoint struct {
	ModuleState    []byte
	OptimiserState []byte
	Epoch          int
}

// record is the encoded form of a Checkpoint. gob decodes an empty slice
// as nil, so presence of each state is stored on its own.
type record struct {
	ModuleState       []byte
	HasModuleState    bool
	OptimiserState    []byte
	HasOptimiserState bool
	Epoch             int
}

// Load reads a checkpoint from a file.
func Load(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := &record{}
	if err := gob.NewDecoder(f).Decode(r); err != nil {
		return nil, fmt.Errorf("unable to decode checkpoint %q: %w", path, err)
	}
	c := &Checkpoint{ModuleState: r.ModuleState, OptimiserState: r.OptimiserState, Epoch: r.Epoch}
	if r.HasModuleState && c.ModuleState == nil {
		c.ModuleState = []byte{}
	}
	if r.HasOptimiserState && c.OptimiserState == nil {
		c.OptimiserState = []byte{}
	}
	return c, nil
}

// Save writes the checkpoint to a file, replacing any existing content.
func (c *Checkpoint) Save(path string) error {
	if c.Epoch < 0 {
		return fmt.Errorf("epoch must be non-negative, got %d", c.Epoch)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	r := &record{
		ModuleState:       c.ModuleState,
		HasModuleState:    c.ModuleState != nil,
		OptimiserState:    c.OptimiserState,
		HasOptimiserState: c.OptimiserState != nil,
		Epoch:             c.Epoch,
	}
	if err := gob.NewEncoder(f).Encode(r); err != nil {
		f.Close()
		return fmt.Errorf("unable to encode checkpoint %q: %w", path, err)
	}
	return f.Close()
}

// Restore applies the stored states onto module and optimiser and returns
// the stored epoch. A nil loader or an absent (nil) stored state is
// skipped; an empty state is still loaded.
func (c *Checkpoint) Restore(module, optimiser StateLoader) (int, error) {
	if c.ModuleState != nil && module != nil {
		if err := module.LoadState(c.ModuleState); err != nil {
			return 0, fmt.Errorf("unable to restore module state: %w", err)
		}
	}
	if c.OptimiserState != nil && optimiser != nil {
		if err := optimiser.LoadState(c.OptimiserState); err != nil {
			return 0, fmt.Errorf("unable to restore optimiser state: %w", err)
		}
	}
	return c.Epoch, nil
}
