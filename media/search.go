package media

// RecursiveFiles returns every File in the Media Set in pre-order:
// within each directory, subdirectories are walked (in insertion order)
// before that directory's own files are emitted.
func (ms *MediaSet) RecursiveFiles() []File {
	var out []File
	for _, m := range ms.media {
		walkFiles(m.root, &out)
	}
	return out
}

func walkFiles(d *Directory, out *[]File) {
	for _, sub := range d.directories {
		walkFiles(sub, out)
	}
	*out = append(*out, d.files...)
}

// RecursiveLoads returns every Load in the Media Set, in the same
// pre-order as RecursiveFiles.
func (ms *MediaSet) RecursiveLoads() []*Load {
	var out []*Load
	for _, f := range ms.RecursiveFiles() {
		if l, ok := f.(*Load); ok {
			out = append(out, l)
		}
	}
	return out
}

// RecursiveBatches returns every Batch in the Media Set, in the same
// pre-order as RecursiveFiles.
func (ms *MediaSet) RecursiveBatches() []*Batch {
	var out []*Batch
	for _, f := range ms.RecursiveFiles() {
		if b, ok := f.(*Batch); ok {
			out = append(out, b)
		}
	}
	return out
}

// RecursiveFileCount returns the total number of files (of any kind)
// owned, directly or indirectly, by d.
func (d *Directory) RecursiveFileCount() int {
	n := len(d.files)
	for _, sub := range d.directories {
		n += sub.RecursiveFileCount()
	}
	return n
}

// LoadsWithFile scans every Load in the Media Set and returns those that
// reference file as a data or support member.
func (ms *MediaSet) LoadsWithFile(file *RegularFile) []*Load {
	var out []*Load
	for _, l := range ms.RecursiveLoads() {
		if loadReferencesFile(l, file) {
			out = append(out, l)
		}
	}
	return out
}

func loadReferencesFile(l *Load, file *RegularFile) bool {
	for _, m := range l.DataFiles {
		if m.File == file {
			return true
		}
	}
	for _, m := range l.SupportFiles {
		if m.File == file {
			return true
		}
	}
	return false
}

// BatchesWithLoad scans every Batch in the Media Set and returns those
// that target load from at least one of their targets.
func (ms *MediaSet) BatchesWithLoad(load *Load) []*Batch {
	var out []*Batch
	for _, b := range ms.RecursiveBatches() {
		if batchTargetsLoad(b, load) {
			out = append(out, b)
		}
	}
	return out
}

func batchTargetsLoad(b *Batch, load *Load) bool {
	for _, t := range b.targets {
		for _, l := range t.Loads {
			if l == load {
				return true
			}
		}
	}
	return false
}
