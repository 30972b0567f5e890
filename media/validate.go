package media

import (
	"fmt"

	"github.com/tvogt/arinc665/internal/errcollect"
)

// Validate checks the cross-reference invariants over the whole Media
// Set before it is handed to the compiler: every Load member resolves to
// a RegularFile owned by this set, every Batch target load is owned by
// this set, and medium numbering is dense. All violations are collected
// and reported together in one ErrInvalidModel, rather than one at a
// time.
func (ms *MediaSet) Validate() error {
	var c errcollect.Collector
	c.Add(ms.CheckNumberingDense())
	c.Add(ValidatePartNumber(ms.PartNumber))

	for _, l := range ms.RecursiveLoads() {
		if err := ValidatePartNumber(l.PartNumber); err != nil {
			c.Addf("load %q: %v", l.Name(), err)
		}
		validateMembers(&c, ms, l, "data", l.DataFiles)
		validateMembers(&c, ms, l, "support", l.SupportFiles)
	}
	for _, b := range ms.RecursiveBatches() {
		for _, t := range b.targets {
			for _, l := range t.Loads {
				if l.medium == nil || l.medium.mediaSet != ms {
					c.Addf("batch %q target %q references load %q outside this media set", b.Name(), t.ThwIdPosition, l.Name())
				}
			}
		}
	}

	if err := c.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return nil
}

func validateMembers(c *errcollect.Collector, ms *MediaSet, l *Load, role string, members []*LoadMember) {
	for _, m := range members {
		if m.File == nil {
			c.Addf("load %q has a nil %s-file member", l.Name(), role)
			continue
		}
		if m.File.medium == nil || m.File.medium.mediaSet != ms {
			c.Addf("load %q %s-file member %q is not owned by this media set", l.Name(), role, m.File.Name())
		}
	}
}
