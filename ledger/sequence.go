/*
sequence.go - Per-kind document number generation

PURPOSE:
  Assigns human-readable sequential document numbers like INV-2026-003.
  Numbers are unique within a kind and strictly increasing in creation
  order. The sequence is seeded from the highest suffix already present
  in the collection, never from the collection length, so deleting a
  document can never cause a number to be reused.

FORMAT:
  <PREFIX>-<year>-<NNN>   e.g. INV-2026-007, BILL-2025-012, RMB-2026-001

  The year reflects creation time; the numeric suffix is per-kind and
  does not reset across years, keeping monotonicity trivial to verify.
*/
package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

// sequence tracks the last issued suffix per kind. Callers hold the engine
// lock; sequence itself is not safe for concurrent use.
type sequence struct {
	last map[Kind]int
}

func newSequence() *sequence {
	return &sequence{last: make(map[Kind]int)}
}

// seed raises the kind's counter to at least the suffix parsed from number.
// Called once per document at load time.
func (s *sequence) seed(kind Kind, number string) {
	if n, ok := parseSuffix(number); ok && n > s.last[kind] {
		s.last[kind] = n
	}
}

// peek returns the number the next issue for kind would produce, without
// consuming it. The engine issues only after the store commit succeeds.
func (s *sequence) peek(kind Kind, year int) string {
	return fmt.Sprintf("%s-%d-%03d", kind.NumberPrefix(), year, s.last[kind]+1)
}

// issue consumes the next suffix for kind.
func (s *sequence) issue(kind Kind) {
	s.last[kind]++
}

func parseSuffix(number string) (int, bool) {
	i := strings.LastIndex(number, "-")
	if i < 0 || i == len(number)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(number[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
