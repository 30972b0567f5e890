package media

import "fmt"

// BatchTarget is one Target-Hardware-ID-position entry in a Batch: an
// ordered list of Loads to apply for that target.
type BatchTarget struct {
	ThwIdPosition string
	Loads         []*Load
}

// Batch groups Loads for application to one or more target hardware
// positions in a single operation.
type Batch struct {
	name   string
	parent *Directory
	medium *Medium

	PartNumber string
	Comment    string

	targets []*BatchTarget
	index   map[string]int
}

// NewBatch constructs a Batch that is not yet attached to any Directory.
// The decompiler uses this to promote a provisionally-attached
// RegularFile to a Batch via Directory.ReplaceFile, and appends the
// Batch's targets after that promotion, since AppendLoad fails on a
// Batch that is not attached to a Medium; ordinary callers should
// prefer Directory.AddBatch.
func NewBatch(name, partNumber, comment string) *Batch {
	return &Batch{name: name, PartNumber: partNumber, Comment: comment, index: map[string]int{}}
}

func (b *Batch) Name() string       { return b.name }
func (*Batch) fileNode()            {}
func (b *Batch) Parent() *Directory { return b.parent }
func (b *Batch) Medium() *Medium    { return b.medium }

// Path returns the directory path components from the medium root down
// to (but not including) b itself.
func (b *Batch) Path() []string {
	return pathComponents(b.parent)
}

// Targets returns the Batch's targets in insertion order.
func (b *Batch) Targets() []*BatchTarget {
	out := make([]*BatchTarget, len(b.targets))
	copy(out, b.targets)
	return out
}

// AddTarget registers a new, initially empty target, or returns the
// existing one if thwIdPosition was already added.
func (b *Batch) AddTarget(thwIdPosition string) *BatchTarget {
	if i, ok := b.index[thwIdPosition]; ok {
		return b.targets[i]
	}
	t := &BatchTarget{ThwIdPosition: thwIdPosition}
	b.index[thwIdPosition] = len(b.targets)
	b.targets = append(b.targets, t)
	return t
}

// AppendLoad appends load to the ordered list of loads for
// thwIdPosition, creating the target if it does not yet exist, and
// failing with ErrInvalidModel if load does not belong to the same
// Media Set as b.
func (b *Batch) AppendLoad(thwIdPosition string, load *Load) error {
	if b.medium == nil || load.medium == nil || b.medium.mediaSet != load.medium.mediaSet {
		return fmt.Errorf("%w: batch target load %q does not belong to the same Media Set", ErrInvalidModel, load.Name())
	}
	t := b.AddTarget(thwIdPosition)
	t.Loads = append(t.Loads, load)
	return nil
}
