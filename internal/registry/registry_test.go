package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danrygg/wovenflow/internal/model"
)

func workflowDoc(namespace, name, version string) *model.Workflow {
	return &model.Workflow{
		Document: model.Document{DSL: "1.0.0", Namespace: namespace, Name: name, Version: version},
		Do:       model.TaskList{},
	}
}

func TestRegistry_ResolveExactVersion(t *testing.T) {
	r := New(NewFSFactory(FSConfig{}), NewYAMLParser())
	r.Register(workflowDoc("test", "greet", "1.0.0"))

	wf, err := r.Resolve(context.Background(), "test", "greet", "1.0.0", "")
	require.NoError(t, err)
	assert.Equal(t, "greet", wf.Document.Name)
}

func TestRegistry_ResolveLatestPicksHighestSemver(t *testing.T) {
	r := New(NewFSFactory(FSConfig{}), NewYAMLParser())
	r.Register(workflowDoc("test", "greet", "1.0.0"))
	r.Register(workflowDoc("test", "greet", "2.1.0"))
	r.Register(workflowDoc("test", "greet", "1.9.0"))

	wf, err := r.Resolve(context.Background(), "test", "greet", "latest", "")
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", wf.Document.Version)
}

func TestRegistry_ResolveUnknownFails(t *testing.T) {
	r := New(NewFSFactory(FSConfig{}), NewYAMLParser())

	_, err := r.Resolve(context.Background(), "test", "missing", "1.0.0", "")
	require.Error(t, err)
}

func TestRegistry_ResolveUnknownCatalogFails(t *testing.T) {
	r := New(NewFSFactory(FSConfig{}), NewYAMLParser())

	_, err := r.Resolve(context.Background(), "test", "greet", "1.0.0", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown catalog")
}

func TestRegistry_ResolveLoadsFromFileCatalog(t *testing.T) {
	dir := t.TempDir()
	funcDir := filepath.Join(dir, "greet", "1.0.0")
	require.NoError(t, os.MkdirAll(funcDir, 0o755))
	doc := []byte(`
document:
  dsl: "1.0.0"
  namespace: catalog
  name: greet
  version: "1.0.0"
do:
  - step1:
      set:
        value: 1
`)
	require.NoError(t, os.WriteFile(filepath.Join(funcDir, "function.yaml"), doc, 0o644))

	r := New(NewFSFactory(FSConfig{}), NewYAMLParser())
	r.RegisterCatalog("local", "file://"+dir)

	wf, err := r.Resolve(context.Background(), "catalog", "greet", "1.0.0", "local")
	require.NoError(t, err)
	assert.Equal(t, "greet", wf.Document.Name)

	// A second resolve must not re-read the catalog (memoized).
	require.NoError(t, os.RemoveAll(funcDir))
	wf2, err := r.Resolve(context.Background(), "catalog", "greet", "1.0.0", "local")
	require.NoError(t, err)
	assert.Equal(t, wf, wf2)
}

func TestRegistry_KeyStringFormat(t *testing.T) {
	k := Key{Namespace: "test", Name: "greet", Version: "1.0.0"}
	assert.Equal(t, "test/greet@1.0.0", k.String())
}
