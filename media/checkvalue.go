package media

import "github.com/tvogt/arinc665/checkvalue"

// EffectiveFilesListCheckValueType resolves the check value type used
// for FILES.LUM's own whole-file check value, falling back to the
// media-set default.
func (ms *MediaSet) EffectiveFilesListCheckValueType() checkvalue.Type {
	if ms.FilesListCheckValueType != checkvalue.NotUsed {
		return ms.FilesListCheckValueType
	}
	return ms.CheckValueType
}

// EffectiveFilesCheckValueType resolves the per-file default level:
// the fallback for per-file check values, and the parent default for
// the list-of-loads and list-of-batches levels.
func (ms *MediaSet) EffectiveFilesCheckValueType() checkvalue.Type {
	if ms.FilesCheckValueType != checkvalue.NotUsed {
		return ms.FilesCheckValueType
	}
	return ms.CheckValueType
}

// EffectiveListOfLoadsCheckValueType resolves the check value type used
// for LOADS.LUM's own FILES.LUM entry, falling back to the per-file
// default.
func (ms *MediaSet) EffectiveListOfLoadsCheckValueType() checkvalue.Type {
	if ms.ListOfLoadsCheckValueType != checkvalue.NotUsed {
		return ms.ListOfLoadsCheckValueType
	}
	return ms.EffectiveFilesCheckValueType()
}

// EffectiveListOfBatchesCheckValueType resolves the check value type
// used for BATCHES.LUM's own FILES.LUM entry, falling back to the
// per-file default.
func (ms *MediaSet) EffectiveListOfBatchesCheckValueType() checkvalue.Type {
	if ms.ListOfBatchesCheckValueType != checkvalue.NotUsed {
		return ms.ListOfBatchesCheckValueType
	}
	return ms.EffectiveFilesCheckValueType()
}

// EffectiveCheckValueType resolves the per-file check value type,
// falling back to the per-file default.
func (f *RegularFile) EffectiveCheckValueType(ms *MediaSet) checkvalue.Type {
	if f.CheckValueType != checkvalue.NotUsed {
		return f.CheckValueType
	}
	return ms.EffectiveFilesCheckValueType()
}

// EffectiveCheckValueType resolves a Load's own check value type,
// falling back to the media-set default.
func (l *Load) EffectiveCheckValueType(ms *MediaSet) checkvalue.Type {
	if l.CheckValueType != checkvalue.NotUsed {
		return l.CheckValueType
	}
	return ms.CheckValueType
}

// EffectiveDataFilesCheckValueType resolves the default applied to
// l's data-file members, falling back to the Load's own check value
// type.
func (l *Load) EffectiveDataFilesCheckValueType(ms *MediaSet) checkvalue.Type {
	if l.DataFilesCheckValueType != checkvalue.NotUsed {
		return l.DataFilesCheckValueType
	}
	return l.EffectiveCheckValueType(ms)
}

// EffectiveSupportFilesCheckValueType resolves the default applied to
// l's support-file members.
func (l *Load) EffectiveSupportFilesCheckValueType(ms *MediaSet) checkvalue.Type {
	if l.SupportFilesCheckValueType != checkvalue.NotUsed {
		return l.SupportFilesCheckValueType
	}
	return l.EffectiveCheckValueType(ms)
}

// EffectiveDataCheckValueType resolves a data-file member's check
// value type, falling back to the owning Load's data-file default.
func (m *LoadMember) EffectiveDataCheckValueType(ms *MediaSet, l *Load) checkvalue.Type {
	if m.CheckValueType != checkvalue.NotUsed {
		return m.CheckValueType
	}
	return l.EffectiveDataFilesCheckValueType(ms)
}

// EffectiveSupportCheckValueType resolves a support-file member's check
// value type analogously to EffectiveDataCheckValueType.
func (m *LoadMember) EffectiveSupportCheckValueType(ms *MediaSet, l *Load) checkvalue.Type {
	if m.CheckValueType != checkvalue.NotUsed {
		return m.CheckValueType
	}
	return l.EffectiveSupportFilesCheckValueType(ms)
}
