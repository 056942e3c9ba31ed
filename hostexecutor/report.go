package hostexecutor

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cockroachdb/errors"
)

// ReportRow is one line of the operator-facing execution report CSV
// (`--report-path`, [SPEC 6.4], supplemented per SPEC_FULL.md's
// original_source/ reconciliation): this is distinct from the
// aggregator-facing `execution-result` POST the Hooks interface sends.
type ReportRow struct {
	BlockNumber uint64
	BlockHash   common.Hash
	Cycles      uint64
	GasUsed     uint64
	Duration    time.Duration
}

// ReportWriter appends ReportRows to a CSV file at path, creating it with
// a header row on first write.
type ReportWriter struct {
	path string
}

// NewReportWriter opens (or prepares to create) the report file at path.
func NewReportWriter(path string) *ReportWriter {
	return &ReportWriter{path: path}
}

// Append writes row as a new line in the report CSV, creating the file and
// its header if this is the first row.
func (w *ReportWriter) Append(row ReportRow) error {
	_, err := os.Stat(w.path)
	needsHeader := os.IsNotExist(err)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open report file %s", w.path)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if needsHeader {
		if err := writer.Write([]string{"block_number", "block_hash", "cycles", "gas_used", "duration_ms"}); err != nil {
			return errors.Wrap(err, "write report header")
		}
	}
	record := []string{
		strconv.FormatUint(row.BlockNumber, 10),
		row.BlockHash.Hex(),
		strconv.FormatUint(row.Cycles, 10),
		strconv.FormatUint(row.GasUsed, 10),
		strconv.FormatInt(row.Duration.Milliseconds(), 10),
	}
	if err := writer.Write(record); err != nil {
		return errors.Wrap(err, "write report row")
	}
	writer.Flush()
	return writer.Error()
}
