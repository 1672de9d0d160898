//go:build !editor

package engine

// EditorAvailable reports whether editor-namespace modules may be exposed.
const EditorAvailable = false
