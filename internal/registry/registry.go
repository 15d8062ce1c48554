// Package registry implements the Workflow Registry (spec.md §4.8):
// resolving (namespace, name, version) to a Workflow Document, with `latest`
// semver resolution and lazily-loaded, memoized external catalogs. Adapted
// from the teacher's internal/library/manager.go (library discovery/
// indexing) — catalogs are the teacher's "libraries" concept keyed by semver
// instead of directory name alone.
package registry

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/afero"

	"github.com/danrygg/wovenflow/internal/model"
)

// Key identifies a Workflow Document.
type Key struct {
	Namespace string
	Name      string
	Version   string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s@%s", k.Namespace, k.Name, k.Version)
}

// Registry resolves workflow references, backed by an in-process map and
// zero or more catalogs.
type Registry struct {
	mu       sync.RWMutex
	docs     map[string]map[string]*model.Workflow // namespace/name -> version -> doc
	catalogs map[string]string                     // catalog name -> root URI
	loaded   map[string]bool                        // memoized catalog/function[@version] entries

	fsFactory *FSFactory
	parser    Parser
}

func New(fsFactory *FSFactory, parser Parser) *Registry {
	return &Registry{
		docs:      make(map[string]map[string]*model.Workflow),
		catalogs:  make(map[string]string),
		loaded:    make(map[string]bool),
		fsFactory: fsFactory,
		parser:    parser,
	}
}

// Register adds wf to the in-process map directly (used for nested/local
// documents that don't come from a catalog).
func (r *Registry) Register(wf *model.Workflow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ns, name, version := wf.Key()
	bucket := fmt.Sprintf("%s/%s", ns, name)
	if r.docs[bucket] == nil {
		r.docs[bucket] = make(map[string]*model.Workflow)
	}
	r.docs[bucket][version] = wf
}

// RegisterCatalog declares a named catalog rooted at uri; it is not fetched
// until first referenced.
func (r *Registry) RegisterCatalog(name, uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalogs[name] = uri
}

// Resolve looks up (namespace, name, version), resolving "latest" to the
// highest semver among known versions for that (namespace, name). If no
// matching document is registered directly and catalogName is non-empty, the
// named catalog is loaded (once) before resolution is retried.
func (r *Registry) Resolve(ctx context.Context, namespace, name, version, catalogName string) (*model.Workflow, error) {
	if wf := r.lookup(namespace, name, version); wf != nil {
		return wf, nil
	}
	if catalogName != "" {
		if err := r.loadCatalogEntry(ctx, catalogName, name, version); err != nil {
			return nil, err
		}
		if wf := r.lookup(namespace, name, version); wf != nil {
			return wf, nil
		}
	}
	return nil, fmt.Errorf("registry: no workflow document for %s", Key{namespace, name, version})
}

func (r *Registry) lookup(namespace, name, version string) *model.Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := fmt.Sprintf("%s/%s", namespace, name)
	versions := r.docs[bucket]
	if versions == nil {
		return nil
	}
	if version != "latest" {
		return versions[version]
	}
	return latestVersion(versions)
}

func latestVersion(versions map[string]*model.Workflow) *model.Workflow {
	var best *semver.Version
	var bestDoc *model.Workflow
	for v, doc := range versions {
		sv, err := semver.NewVersion(v)
		if err != nil {
			continue
		}
		if best == nil || sv.GreaterThan(best) {
			best = sv
			bestDoc = doc
		}
	}
	return bestDoc
}

// loadCatalogEntry fetches {catalogRoot}/{function-name}/{version}/
// function.yaml (or, for "latest", every version directory present) and
// registers whatever documents it finds. Entries are memoized per catalog,
// function name and version (a "latest" lookup is memoized per catalog and
// function name) for the process's (and hence the instance's) lifetime.
func (r *Registry) loadCatalogEntry(ctx context.Context, catalogName, funcName, version string) error {
	r.mu.Lock()
	memoKey := catalogName + "/" + funcName
	if version != "latest" {
		memoKey += "@" + version
	}
	if r.loaded[memoKey] {
		r.mu.Unlock()
		return nil
	}
	root, ok := r.catalogs[catalogName]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("registry: unknown catalog %q", catalogName)
	}

	resolved, err := r.fsFactory.Resolve(root)
	if err != nil {
		return err
	}

	versions := []string{version}
	if version == "latest" {
		entries, err := afero.ReadDir(resolved.Fs, path.Join(resolved.BasePath, funcName))
		if err != nil {
			return fmt.Errorf("registry: list versions for %s: %w", funcName, err)
		}
		versions = versions[:0]
		for _, e := range entries {
			if e.IsDir() {
				versions = append(versions, e.Name())
			}
		}
	}

	for _, v := range versions {
		docPath := path.Join(resolved.BasePath, funcName, v, "function.yaml")
		data, err := afero.ReadFile(resolved.Fs, docPath)
		if err != nil {
			return fmt.Errorf("registry: read %s: %w", docPath, err)
		}
		wf, err := r.parser.Parse(docPath, data)
		if err != nil {
			return err
		}
		r.Register(wf)
	}

	r.mu.Lock()
	r.loaded[memoKey] = true
	r.mu.Unlock()
	_ = ctx
	return nil
}
