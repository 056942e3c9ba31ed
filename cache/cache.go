// Package cache implements InputCache ([SPEC 4.5]): an on-disk,
// atomically-written store of ClientExecutorInput, keyed by chain id and
// block number.
package cache

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/ProjectZKM/reth-processor/hostexecutor"
	"github.com/ProjectZKM/reth-processor/log"
)

// InputCache stores ClientExecutorInput at
// <dir>/input/<chain_id>/<block_number>.bin. Entries are immutable once
// written; OpcodeTracking is deliberately excluded from the cache key and
// is instead overlaid by the caller after a load ([SPEC 4.5]).
type InputCache struct {
	dir string
	log *log.Logger
}

// New builds an InputCache rooted at dir.
func New(dir string) *InputCache {
	return &InputCache{dir: dir, log: log.Default().Module("cache")}
}

func (c *InputCache) path(chainID, blockNumber uint64) string {
	return filepath.Join(c.dir, "input", strconv.FormatUint(chainID, 10), strconv.FormatUint(blockNumber, 10)+".bin")
}

// TryLoad returns the cached input for (chainID, blockNumber), or nil if no
// entry exists. A corrupt file is treated as a miss: it is logged and
// never surfaced as an error, so a fresh fetch can supersede it ([SPEC
// 4.5]).
func (c *InputCache) TryLoad(chainID, blockNumber uint64) (*hostexecutor.ClientExecutorInput, error) {
	path := c.path(chainID, blockNumber)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read cache file %s", path)
	}

	input, err := hostexecutor.DecodeClientExecutorInput(data)
	if err != nil {
		c.log.Warn("cache file is corrupt, treating as a miss", "path", path, "err", err)
		return nil, nil
	}
	return input, nil
}

// Store writes input for (chainID, blockNumber) atomically: encode to a
// temp file in the same directory, then rename over the final path, so a
// cancelled or crashed write never leaves a partially-written file visible
// to TryLoad ([SPEC 5] "Cancellation").
func (c *InputCache) Store(chainID, blockNumber uint64, input *hostexecutor.ClientExecutorInput) error {
	path := c.path(chainID, blockNumber)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create cache directory for %s", path)
	}

	data, err := input.Encode()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp cache file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write temp cache file %s", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close temp cache file %s", tmpPath)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrapf(err, "rename %s to %s", tmpPath, path)
	}
	return nil
}
