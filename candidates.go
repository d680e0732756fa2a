package failover

import (
	"fmt"
	"net/url"
	"strings"
)

// CandidateList is an ordered, immutable sequence of base addresses for a
// remote service. Position defines trial priority: index 0 is the primary.
type CandidateList struct {
	addrs []string
}

// NewCandidateList validates and normalises addrs into a [CandidateList].
// Each entry must be an absolute URL with a scheme and a host; surrounding
// whitespace and a trailing slash are trimmed. Duplicates are rejected so
// that a backup is never a copy of the primary.
func NewCandidateList(addrs ...string) (*CandidateList, error) {
	if len(addrs) == 0 {
		return nil, ErrNoCandidates
	}

	seen := make(map[string]int, len(addrs))
	normalised := make([]string, 0, len(addrs))

	for i, raw := range addrs {
		addr := strings.TrimSuffix(strings.TrimSpace(raw), "/")
		if addr == "" {
			return nil, fmt.Errorf("%w: entry %d is blank", ErrInvalidCandidate, i)
		}

		u, err := url.Parse(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidCandidate, i, err)
		}

		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf(
				"%w: entry %d %q is not an absolute URL",
				ErrInvalidCandidate, i, addr,
			)
		}

		if prev, dup := seen[addr]; dup {
			return nil, fmt.Errorf(
				"%w: entries %d and %d are both %q",
				ErrDuplicateCandidate, prev, i, addr,
			)
		}

		seen[addr] = i
		normalised = append(normalised, addr)
	}

	return &CandidateList{addrs: normalised}, nil
}

// MustCandidateList is like [NewCandidateList] but panics on error. Intended
// for presets and tests where the addresses are literals.
func MustCandidateList(addrs ...string) *CandidateList {
	cl, err := NewCandidateList(addrs...)
	if err != nil {
		panic("failover: " + err.Error())
	}

	return cl
}

// Size returns the number of candidates. It is always at least 1.
func (c *CandidateList) Size() int { return len(c.addrs) }

// At returns the base address tried at position index. It panics when index
// is outside [0, Size()).
func (c *CandidateList) At(index int) string {
	if index < 0 || index >= len(c.addrs) {
		panic(fmt.Sprintf("failover: candidate index %d out of range [0,%d)", index, len(c.addrs)))
	}

	return c.addrs[index]
}

// All returns a copy of the candidates in trial order.
func (c *CandidateList) All() []string {
	out := make([]string, len(c.addrs))
	copy(out, c.addrs)

	return out
}

func (c *CandidateList) String() string {
	return "[" + strings.Join(c.addrs, " ") + "]"
}
