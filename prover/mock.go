package prover

import "github.com/cockroachdb/errors"

// MockProver is a deterministic in-memory Prover, grounded on the teacher
// pack's preference for hand-written fakes over mocking frameworks in
// tests that need a working implementation rather than a call-count
// assertion. It is exported (not test-only) so cmd binaries can exercise
// the full dispatch path without a real zkVM SDK wired in yet.
type MockProver struct {
	// BlockHash is read back as the first public value committed by
	// Execute, satisfying the block-hash commitment property ([SPEC 8]
	// property 3) without running a real guest program.
	BlockHash func(stdin *Stdin) [32]byte
}

func (m *MockProver) Setup(elf []byte) (*ProvingKey, *VerifyingKey, error) {
	if len(elf) == 0 {
		return nil, nil, errors.New("empty elf")
	}
	return &ProvingKey{ELF: elf}, &VerifyingKey{Raw: []byte("mock-vk")}, nil
}

func (m *MockProver) Execute(pk *ProvingKey, stdin *Stdin) (*PublicValues, *ExecutionReport, error) {
	hash := m.blockHash(stdin)
	report := &ExecutionReport{CycleTracker: map[string]uint64{"total": uint64(len(stdin.Bytes()))}}
	return NewPublicValues(hash[:]), report, nil
}

func (m *MockProver) ProveWithCycles(pk *ProvingKey, stdin *Stdin, kind Kind, elfID string) (*ProveResult, error) {
	hash := m.blockHash(stdin)
	return &ProveResult{
		Proof: Proof{
			Bytes:        append([]byte("mock-proof:"), byte(len(kind))),
			PublicValues: hash[:],
			Version:      "mock-0.0.0",
		},
		Cycles: uint64(len(stdin.Bytes())),
	}, nil
}

func (m *MockProver) blockHash(stdin *Stdin) [32]byte {
	if m.BlockHash != nil {
		return m.BlockHash(stdin)
	}
	var h [32]byte
	copy(h[:], stdin.Bytes())
	return h
}
