package variables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadVariableFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.yaml", "apiKey: s3cret\nreplicas: 3\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secrets["apiKey"])
	assert.Equal(t, 3, secrets["replicas"])
}

func TestLoadVariableFile_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.json", `{"apiKey": "s3cret", "replicas": 5}`)

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secrets["apiKey"])
}

func TestLoadVariableFile_Env(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.env", "# a comment\nAPI_KEY=s3cret\nREPLICAS=3\nDEBUG=true\n\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, secrets["REPLICAS"])
	assert.Equal(t, true, secrets["DEBUG"])
	assert.Equal(t, "s3cret", secrets["API_KEY"])
}

func TestLoadVariableFile_EnvInvalidLineFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.env", "NOT_A_VALID_LINE\n")

	fl := New("")
	_, err := fl.LoadVariableFile(path)
	require.Error(t, err)
}

func TestLoadVariableFile_AutoDetectYAMLWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets", "apiKey: s3cret\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secrets["apiKey"])
}

func TestLoadVariableFile_MissingFileFails(t *testing.T) {
	fl := New("")
	_, err := fl.LoadVariableFile("/nonexistent/secrets.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secrets file not found")
}

func TestLoadVariableFile_RelativePathResolvesAgainstBasePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "secrets.yaml", "apiKey: s3cret\n")

	fl := New(dir)
	secrets, err := fl.LoadVariableFile("secrets.yaml")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", secrets["apiKey"])
}

func TestLoadVariableFile_ExpandsEnvHelperAgainstHostEnvironment(t *testing.T) {
	t.Setenv("WOVENFLOW_TEST_SECRET", "from-host-env")
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.yaml", `apiKey: "{{ env \"WOVENFLOW_TEST_SECRET\" }}"`+"\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-host-env", secrets["apiKey"])
}

func TestLoadVariableFile_EnvHelperFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.yaml", `apiKey: "{{ env \"WOVENFLOW_UNSET_SECRET\" \"fallback\" }}"`+"\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fallback", secrets["apiKey"])
}

func TestLoadVariableFile_ExpandsSprigHelper(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.yaml", `apiKey: "{{ upper \"s3cret\" }}"`+"\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "S3CRET", secrets["apiKey"])
}

func TestLoadVariableFile_ExpandsNestedMapAndSliceLeaves(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.yaml", "database:\n  host: db.internal\n  tags:\n    - \"{{ upper \\\"prod\\\" }}\"\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	db := secrets["database"].(map[string]interface{})
	assert.Equal(t, "db.internal", db["host"])
	tags := db["tags"].([]interface{})
	assert.Equal(t, "PROD", tags[0])
}

func TestLoadVariableFile_LeavesNonTemplateStringsUntouched(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "secrets.yaml", "plain: just a value\n")

	fl := New("")
	secrets, err := fl.LoadVariableFile(path)
	require.NoError(t, err)
	assert.Equal(t, "just a value", secrets["plain"])
}

func TestParseValue_TypeCoercion(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, false, parseValue("FALSE"))
	assert.Equal(t, 42, parseValue("42"))
	assert.Equal(t, 3.14, parseValue("3.14"))
	assert.Equal(t, "plain", parseValue("plain"))
}
