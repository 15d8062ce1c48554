// Package variables loads the file named by a `run`/`validate` subcommand's
// `--secrets-file` flag (spec.md §4.2) into the map bound as `$secrets` at
// expression-evaluation time (internal/expr/expr.go's Environment.Secrets).
// Only one file is ever loaded per engine startup, so this intentionally
// does not carry the teacher's broader variable-file surface (multi-file
// merge, `@file` reference resolution, directory listing) — none of it is
// exercised by anything this engine's `$secrets` contract needs.
//
// Every string leaf in the loaded file is run through a sprig-backed
// text/template expansion, so a secrets file can defer to a host
// environment variable or a sprig helper (default, b64dec, trimSuffix, ...)
// instead of committing a resolved value to disk. This mirrors the
// template.FuncMap composition the teacher's internal/template/engine.go
// builds around sprig.TxtFuncMap(), narrowed to this loader's own concerns:
// there is no $context-shaped placeholder substitution here, since no
// workflow instance exists yet when secrets are loaded at startup.
package variables

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

// FileLoader loads a single secrets file, resolving relative paths against
// basePath.
type FileLoader struct {
	basePath string
	funcMap  template.FuncMap
}

// New creates a FileLoader. basePath is typically empty for a CLI-flag-given
// path, which callers pass through as-is.
func New(basePath string) *FileLoader {
	return &FileLoader{basePath: basePath, funcMap: secretFuncMap()}
}

func secretFuncMap() template.FuncMap {
	funcMap := template.FuncMap{}
	for name, fn := range sprig.TxtFuncMap() {
		funcMap[name] = fn
	}
	funcMap["env"] = func(name string, defaultValue ...string) string {
		if v := os.Getenv(name); v != "" {
			return v
		}
		if len(defaultValue) > 0 {
			return defaultValue[0]
		}
		return ""
	}
	return funcMap
}

// LoadVariableFile loads filePath and returns its contents as a map, with
// every string leaf expanded as a sprig template. Format is chosen by
// extension: `.env` is parsed as KEY=VALUE lines, anything else as YAML
// (which, being a JSON superset, also covers `.json` and extensionless
// files without a separate code path).
func (fl *FileLoader) LoadVariableFile(filePath string) (map[string]interface{}, error) {
	if !filepath.IsAbs(filePath) && fl.basePath != "" {
		filePath = filepath.Join(fl.basePath, filePath)
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("secrets file not found: %s", filePath)
	}

	var raw map[string]interface{}
	var err error
	if strings.ToLower(filepath.Ext(filePath)) == ".env" {
		raw, err = fl.loadEnvFile(filePath)
	} else {
		raw, err = fl.loadStructuredFile(filePath)
	}
	if err != nil {
		return nil, err
	}

	expanded := fl.expandValue(raw)
	return expanded.(map[string]interface{}), nil
}

func (fl *FileLoader) loadStructuredFile(filePath string) (map[string]interface{}, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file '%s': %w", filePath, err)
	}
	var values map[string]interface{}
	if err := yaml.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("failed to parse secrets file '%s': %w", filePath, err)
	}
	return values, nil
}

func (fl *FileLoader) loadEnvFile(filePath string) (map[string]interface{}, error) {
	lines, err := readEnvLines(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load .env secrets file '%s': %w", filePath, err)
	}

	values := make(map[string]interface{}, len(lines))
	for _, line := range lines {
		key, value, err := parseVariableString(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse secret in file '%s': %w", filePath, err)
		}
		values[key] = value
	}
	return values, nil
}

// expandValue walks a decoded value, running every string leaf through the
// sprig-backed template expansion. Non-string leaves (bools, numbers from
// .env coercion) pass through unchanged.
func (fl *FileLoader) expandValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		expanded, err := fl.expandString(v)
		if err != nil {
			// Malformed template syntax in a value that wasn't meant as a
			// template (a literal containing "{{") degrades to the raw
			// string rather than failing the whole secrets file.
			return v
		}
		return expanded
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			out[k] = fl.expandValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = fl.expandValue(val)
		}
		return out
	default:
		return value
	}
}

func (fl *FileLoader) expandString(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}
	tmpl, err := template.New("secret").Funcs(fl.funcMap).Parse(s)
	if err != nil {
		return s, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return s, err
	}
	return buf.String(), nil
}

// readEnvLines returns the non-empty, non-comment lines of a .env file.
func readEnvLines(filename string) ([]string, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file '%s': %w", filename, err)
	}

	var lines []string
	for lineNum, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "=") {
			return nil, fmt.Errorf("invalid format in environment file '%s' at line %d: %s", filename, lineNum+1, line)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// parseVariableString parses one KEY=VALUE .env line.
func parseVariableString(varStr string) (string, interface{}, error) {
	parts := strings.SplitN(varStr, "=", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("invalid variable format '%s' (expected key=value)", varStr)
	}
	return parts[0], parseValue(parts[1]), nil
}

// parseValue coerces a raw .env value string into a bool, int, float, or
// leaves it as a string.
func parseValue(value string) interface{} {
	if lower := strings.ToLower(value); lower == "true" || lower == "false" {
		return lower == "true"
	}
	if intVal, err := strconv.Atoi(value); err == nil {
		return intVal
	}
	if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
		return floatVal
	}
	return value
}
