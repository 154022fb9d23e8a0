package chain

import "errors"

// Set of error values describing why a block was not accepted.
var (
	ErrDuplicateBlock   = errors.New("block already accepted")
	ErrInvalidHashClaim = errors.New("block claimed hash does not match its header")
	ErrInsufficientWork = errors.New("block hash does not meet the target")
	ErrOrphanedBlock    = errors.New("block parent is unknown, buffered as orphan")
	ErrBrokenAncestry   = errors.New("block ancestry does not reach genesis")
	ErrInvalidGenesis   = errors.New("genesis block claim is invalid")
)

// =============================================================================

// Outcome is the result of submitting a block to the chain.
type Outcome int

// Set of possible outcomes from AddBlock.
const (
	Accepted Outcome = iota + 1
	Duplicate
	InvalidHash
	InsufficientWork
	Orphaned
)

// String implements the fmt.Stringer interface.
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case InvalidHash:
		return "invalid-hash"
	case InsufficientWork:
		return "insufficient-work"
	case Orphaned:
		return "orphaned"
	}

	return "unknown"
}

// Err maps the outcome to its error value. Accepted returns nil.
func (o Outcome) Err() error {
	switch o {
	case Accepted:
		return nil
	case Duplicate:
		return ErrDuplicateBlock
	case InvalidHash:
		return ErrInvalidHashClaim
	case InsufficientWork:
		return ErrInsufficientWork
	case Orphaned:
		return ErrOrphanedBlock
	}

	return errors.New("unknown outcome")
}
