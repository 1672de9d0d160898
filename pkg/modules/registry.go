// Package modules tracks host-side module directories by namespace so that
// an engine can expose only the namespaces it was configured for.
package modules

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jingkaihe/unipy/internal/errx"
)

// Module is a directory of importable host code published under a namespace.
type Module struct {
	Namespace string
	Path      string
}

// Registry holds registered modules in registration order.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
}

// Default is the process-wide registry used when an engine is not given one.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{}
}

// Register publishes path under namespace.
func (r *Registry) Register(namespace, path string) error {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return errx.With(ErrInvalidModule, ": namespace is required")
	}
	if strings.TrimSpace(path) == "" {
		return errx.With(ErrInvalidModule, ": path is required for namespace %q", namespace)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = append(r.modules, Module{Namespace: namespace, Path: filepath.Clean(path)})
	return nil
}

// ParseSpec parses a "namespace=path" mapping.
func ParseSpec(spec string) (Module, error) {
	ns, path, ok := strings.Cut(spec, "=")
	if !ok || strings.TrimSpace(ns) == "" || strings.TrimSpace(path) == "" {
		return Module{}, errx.With(ErrInvalidModule, ": %q (expected namespace=path)", spec)
	}
	return Module{Namespace: strings.TrimSpace(ns), Path: filepath.Clean(strings.TrimSpace(path))}, nil
}

// ScanDir registers every subdirectory of root, using the directory name as
// the namespace. Dotted names like "engine.physics" are kept verbatim.
func (r *Registry) ScanDir(root string) (int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, errx.Wrap(ErrScanModules, err)
	}
	n := 0
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := r.Register(entry.Name(), filepath.Join(root, entry.Name())); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// InNamespace returns the modules whose namespace begins with prefix,
// distinct by path, in registration order.
func (r *Registry) InNamespace(prefix string) []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var out []Module
	for _, m := range r.modules {
		if !strings.HasPrefix(m.Namespace, prefix) || seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		out = append(out, m)
	}
	return out
}

// All returns a copy of every registered module.
func (r *Registry) All() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Module(nil), r.modules...)
}
