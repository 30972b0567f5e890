package media

import "strings"

// RelPath returns f's location relative to its medium root, POSIX style
// (forward-slash separated, leading "/"), as used by the compiler and
// decompiler callback surface. Binary-format path encoding
// (backslash-delimited) is a concern of package codec, not of this
// model.
func RelPath(f File) string {
	parts := append(append([]string(nil), f.Path()...), f.Name())
	return "/" + strings.Join(parts, "/")
}

// RelPath returns d's own location relative to its medium root, POSIX
// style, as passed to Callbacks.CreateDirectory. The medium root itself
// has RelPath "/".
func (d *Directory) RelPath() string {
	if d.parent == nil {
		return "/"
	}
	return "/" + strings.Join(pathComponents(d), "/")
}
