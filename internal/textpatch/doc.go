// Package textpatch holds the pure text algorithms behind suggestion
// application: paragraph segmentation, anchored substring replacement and
// a minimal prefix/suffix diff used for highlighting.
//
// Nothing in this package caches document state. Callers segment and patch
// against a freshly supplied snapshot every time, so concurrent manual
// edits are always visible to the anchor search.
package textpatch
