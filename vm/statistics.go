package vm

import (
	"encoding/json"
	"io"
	"sort"
	"time"
)

// Statistics tracks execution metrics for one VM run, grounded on the
// same shape the ARM emulator's PerformanceStatistics exposes, cut
// down to what a postfix interpreter can actually report: there is no
// branch-prediction, memory-access, or per-function notion here, only
// instruction counts and jump counts.
type Statistics struct {
	Enabled bool

	TotalInstructions uint64
	ExecutionTime     time.Duration

	// InstructionCounts maps an instruction kind's name (PLUS, ASSIGN,
	// WRITE, ...) to how many times it was dispatched.
	InstructionCounts map[string]uint64

	JumpCount       uint64
	JumpTakenCount  uint64
	JumpSkippedCount uint64

	startTime time.Time
}

// NewStatistics creates a disabled tracker; Enabled is flipped on by
// the caller (spec.md's Execution.EnableStats config flag) before Run.
func NewStatistics() *Statistics {
	return &Statistics{
		InstructionCounts: make(map[string]uint64),
	}
}

func (s *Statistics) start() {
	s.startTime = time.Now()
}

func (s *Statistics) finalize() {
	s.ExecutionTime = time.Since(s.startTime)
}

func (s *Statistics) recordInstruction(name string) {
	if s == nil || !s.Enabled {
		return
	}
	s.TotalInstructions++
	s.InstructionCounts[name]++
}

func (s *Statistics) recordJump(taken bool) {
	if s == nil || !s.Enabled {
		return
	}
	s.JumpCount++
	if taken {
		s.JumpTakenCount++
	} else {
		s.JumpSkippedCount++
	}
}

// InstructionStat is one row of GetTopInstructions's ranking.
type InstructionStat struct {
	Name  string
	Count uint64
}

// GetTopInstructions returns the n most frequently dispatched
// instruction kinds, most frequent first.
func (s *Statistics) GetTopInstructions(n int) []InstructionStat {
	rows := make([]InstructionStat, 0, len(s.InstructionCounts))
	for name, count := range s.InstructionCounts {
		rows = append(rows, InstructionStat{Name: name, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// ExportJSON writes the full statistics snapshot as JSON.
func (s *Statistics) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
