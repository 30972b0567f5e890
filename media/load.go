package media

import (
	"fmt"
	"sort"

	"github.com/tvogt/arinc665/checkvalue"
)

// LoadMember is one data-file or support-file member of a Load: a
// non-owning reference to the RegularFile carrying its content, the
// part number under which it is delivered as part of this Load, and an
// optional per-member check value type override.
type LoadMember struct {
	File           *RegularFile
	PartNumber     string
	CheckValueType checkvalue.Type
}

// Load is a single uploadable software part: a Load Header File plus
// its data and support file members, the target hardware it applies
// to, and (from Supplement 3/4/5) an optional Load Type descriptor.
type Load struct {
	name   string
	parent *Directory
	medium *Medium

	PartNumber string

	// PartFlags is the Supplement 3/4/5 Part Flags field of the Load
	// Upload Header; spare (0) under Supplement 2.
	PartFlags uint16

	// UserDefinedData is carried verbatim in the Load Upload Header's
	// user-defined-data area.
	UserDefinedData []byte

	targetHardwareIDs map[string]map[string]struct{}

	DataFiles    []*LoadMember
	SupportFiles []*LoadMember

	LoadType *LoadType

	CheckValueType             checkvalue.Type
	DataFilesCheckValueType    checkvalue.Type
	SupportFilesCheckValueType checkvalue.Type
}

// LoadType names the optional Supplement 3/4/5 Load Type descriptor.
type LoadType struct {
	Description string
	ID          uint16
}

// NewLoad constructs a Load that is not yet attached to any Directory.
// The decompiler uses this to build a Load's attributes before promoting
// a provisionally-attached RegularFile to it via Directory.ReplaceFile;
// ordinary callers should prefer Directory.AddLoad.
func NewLoad(name, partNumber string) *Load {
	return &Load{
		name:              name,
		PartNumber:        partNumber,
		targetHardwareIDs: map[string]map[string]struct{}{},
	}
}

func (l *Load) Name() string       { return l.name }
func (*Load) fileNode()            {}
func (l *Load) Parent() *Directory { return l.parent }
func (l *Load) Medium() *Medium    { return l.medium }

// Path returns the directory path components from the medium root down
// to (but not including) l itself.
func (l *Load) Path() []string {
	return pathComponents(l.parent)
}

// AddTargetHardwareID registers thwID as applicable to this Load, with
// no positions (the Supplement 2 shape).
func (l *Load) AddTargetHardwareID(thwID string) {
	if _, ok := l.targetHardwareIDs[thwID]; !ok {
		l.targetHardwareIDs[thwID] = map[string]struct{}{}
	}
}

// AddTargetHardwarePosition registers position as applicable to thwID on
// this Load.
func (l *Load) AddTargetHardwarePosition(thwID, position string) {
	positions, ok := l.targetHardwareIDs[thwID]
	if !ok {
		positions = map[string]struct{}{}
		l.targetHardwareIDs[thwID] = positions
	}
	positions[position] = struct{}{}
}

// TargetHardwareIDs returns the Load's Target Hardware identifiers in
// sorted order, each paired with its (possibly empty) sorted set of
// positions.
func (l *Load) TargetHardwareIDs() []ThwIdPosition {
	ids := make([]string, 0, len(l.targetHardwareIDs))
	for id := range l.targetHardwareIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]ThwIdPosition, 0, len(ids))
	for _, id := range ids {
		positionSet := l.targetHardwareIDs[id]
		positions := make([]string, 0, len(positionSet))
		for p := range positionSet {
			positions = append(positions, p)
		}
		sort.Strings(positions)
		out = append(out, ThwIdPosition{ThwId: id, Positions: positions})
	}
	return out
}

// ThwIdPosition pairs a Target Hardware identifier with the positions a
// Load applies to on it (empty when no positions are distinguished).
type ThwIdPosition struct {
	ThwId     string
	Positions []string
}

// AddDataFile appends a data-file member, failing with ErrInvalidModel
// if file does not belong to the same Media Set as l.
func (l *Load) AddDataFile(file *RegularFile, partNumber string) (*LoadMember, error) {
	return l.addMember(&l.DataFiles, file, partNumber)
}

// AddSupportFile appends a support-file member, with the same ownership
// check as AddDataFile.
func (l *Load) AddSupportFile(file *RegularFile, partNumber string) (*LoadMember, error) {
	return l.addMember(&l.SupportFiles, file, partNumber)
}

func (l *Load) addMember(list *[]*LoadMember, file *RegularFile, partNumber string) (*LoadMember, error) {
	if l.medium == nil || file.medium == nil || l.medium.mediaSet != file.medium.mediaSet {
		return nil, fmt.Errorf("%w: load member %q does not belong to the same Media Set", ErrInvalidModel, file.Name())
	}
	m := &LoadMember{File: file, PartNumber: partNumber}
	*list = append(*list, m)
	return m, nil
}
