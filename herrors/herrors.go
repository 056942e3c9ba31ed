// Package herrors defines the error taxonomy shared by every stage of the
// witness-assembly and block-dispatch pipeline ([SPEC 7]). Errors are built
// on cockroachdb/errors so that wrapped causes, stack traces, and
// errors.Is/As chains survive crossing goroutine and RPC boundaries, which
// matters here because a block failure must carry enough detail for the
// Dispatcher's human-readable alert message.
package herrors

import (
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors that do not carry structured data.
var (
	// ErrFailedToRecoverSenders indicates the RPC block response contained
	// a transaction whose sender could not be recovered from its signature.
	ErrFailedToRecoverSenders = errors.New("failed to recover senders from RPC block data")

	// ErrMissingAncestorHeader indicates a BLOCKHASH lookup fell outside the
	// ancestor headers supplied by the witness.
	ErrMissingAncestorHeader = errors.New("missing required ancestor header")

	// ErrHeaderDeserializationFailed indicates the ancestor headers embedded
	// in an execution witness could not be RLP-decoded.
	ErrHeaderDeserializationFailed = errors.New("could not deserialize ancestor headers")

	// ErrNoProvider indicates neither an RPC URL nor a cache directory was
	// configured, so there is no way to obtain a block's input.
	ErrNoProvider = errors.New("either an RPC URL or a cache directory must be configured")

	// ErrCacheMiss indicates CachedExecutor found no cached input for a
	// block; unlike a FullExecutor cache miss this is fatal, since a
	// CachedExecutor has no provider to fall back to.
	ErrCacheMiss = errors.New("no cached input found for block")
)

// ExpectedBlockError is returned when the RPC endpoint claims a block does
// not exist, which [SPEC 4.1] treats as a signal that the RPC is lagging
// rather than a permanent failure.
type ExpectedBlockError struct {
	Number uint64
}

func (e *ExpectedBlockError) Error() string {
	return errors.Safe(errors.Newf("rpc did not have expected block height %d", e.Number)).Error()
}

// NewExpectedBlock builds an ExpectedBlockError.
func NewExpectedBlock(number uint64) error {
	return &ExpectedBlockError{Number: number}
}

// HeaderMismatchError indicates the locally fetched header does not match
// the header hash the caller expected (for example after a re-org between
// the block fetch and the witness fetch).
type HeaderMismatchError struct {
	Found, Expected common.Hash
}

func (e *HeaderMismatchError) Error() string {
	return errors.Newf("header mismatch: found %s expected %s", e.Found, e.Expected).Error()
}

func NewHeaderMismatch(found, expected common.Hash) error {
	return &HeaderMismatchError{Found: found, Expected: expected}
}

// StateRootMismatchError indicates the WitnessTrie's reconstructed root, or
// the root produced by a local re-execution, does not match the root the
// canonical chain reports.
type StateRootMismatchError struct {
	Found, Expected common.Hash
}

func (e *StateRootMismatchError) Error() string {
	return errors.Newf("state root mismatch: found %s expected %s", e.Found, e.Expected).Error()
}

func NewStateRootMismatch(found, expected common.Hash) error {
	return &StateRootMismatchError{Found: found, Expected: expected}
}

// CustomError wraps an untyped upstream failure message, mirroring the
// source's `Custom(String)` variant for failures that don't fit any other
// category.
type CustomError struct {
	Msg string
}

func (e *CustomError) Error() string { return e.Msg }

func NewCustom(format string, args ...interface{}) error {
	return &CustomError{Msg: errors.Newf(format, args...).Error()}
}

// Wrap attaches additional context to err while preserving errors.Is/As
// compatibility with the wrapped cause.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
