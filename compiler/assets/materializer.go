// Package assets persists a resource graph as addressable artifacts: one
// file per resolver and function at a name derived from its key, one
// template fragment per stack, and the root template wiring them together.
// Writing the same graph twice produces byte-identical contents; locations
// derive from keys, never from content, so a small code change cannot
// rename unrelated assets.
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stackweave/stackweave/compiler/graph"
)

const (
	resolversDir = "resolvers"
	functionsDir = "functions"
	stacksDir    = "stacks"

	schemaFile   = "schema.graphql"
	rootFile     = "root-cloudformation-template.json"
	manifestFile = "manifest.json"

	// Fixed template-include parameter names.
	ParamAPIName           = "AppApiName"
	ParamEnv               = "env"
	ParamDeploymentBucket  = "S3DeploymentBucket"
	ParamDeploymentRootKey = "S3DeploymentRootKey"
)

// WriteError is a fatal materialization failure; the synthesis call aborts
// and nothing retries.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write asset %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// StackAssets is the materialization result: the rewritten templates, the
// relative paths written under the working directory and the fixed
// template-include parameters for the synthesis layer.
type StackAssets struct {
	RootStack     *graph.Template
	Stacks        map[string]*graph.Template
	Files         []string
	IncludeParams map[string]string
}

// Materializer persists resource graphs into a caller-owned working
// directory. Concurrent synthesis calls must use distinct directories; the
// materializer does not serialize access.
type Materializer struct {
	WorkDir string
	Bucket  string
	RootKey string
}

// Materialize writes every artifact of g and returns the rewritten stack
// set. The input graph is not mutated.
func (m *Materializer) Materialize(apiName, env, schemaSDL string, g *graph.ResourceGraph, authParams map[string]string) (*StackAssets, error) {
	out := &StackAssets{
		Stacks:        make(map[string]*graph.Template, len(g.Stacks)),
		IncludeParams: map[string]string{},
	}

	files := map[string][]byte{}
	files[schemaFile] = []byte(schemaSDL)

	for pair := g.Resolvers.Oldest(); pair != nil; pair = pair.Next() {
		files[filepath.Join(resolversDir, pair.Key)] = []byte(pair.Value)
	}
	for pair := g.Functions.Oldest(); pair != nil; pair = pair.Next() {
		files[filepath.Join(functionsDir, pair.Key+".js")] = []byte(pair.Value.Code)
	}

	stackNames := make([]string, 0, len(g.Stacks))
	for name := range g.Stacks {
		stackNames = append(stackNames, name)
	}
	sort.Strings(stackNames)

	for _, name := range stackNames {
		rewritten, err := m.rewriteTemplate(g.Stacks[name])
		if err != nil {
			return nil, err
		}
		out.Stacks[name] = rewritten
		data, err := marshalTemplate(rewritten)
		if err != nil {
			return nil, err
		}
		files[filepath.Join(stacksDir, name+".json")] = data
	}

	root, err := m.rewriteTemplate(g.RootStack)
	if err != nil {
		return nil, err
	}
	m.parameterizeRoot(root, stackNames)
	out.RootStack = root
	rootData, err := marshalTemplate(root)
	if err != nil {
		return nil, err
	}
	files[rootFile] = rootData

	manifest, err := buildManifest(apiName, env, stackNames, g)
	if err != nil {
		return nil, err
	}
	files[manifestFile] = manifest

	if err := m.writeFileSet(files); err != nil {
		return nil, err
	}

	out.Files = make([]string, 0, len(files))
	for rel := range files {
		out.Files = append(out.Files, rel)
	}
	sort.Strings(out.Files)

	out.IncludeParams[ParamAPIName] = apiName
	out.IncludeParams[ParamEnv] = env
	out.IncludeParams[ParamDeploymentBucket] = m.Bucket
	out.IncludeParams[ParamDeploymentRootKey] = m.RootKey
	for k, v := range authParams {
		out.IncludeParams[k] = v
	}
	return out, nil
}

// writeFileSet persists the exact file set and prunes stale managed files
// left over from a previous run with different keys.
func (m *Materializer) writeFileSet(files map[string][]byte) error {
	for _, dir := range []string{resolversDir, functionsDir, stacksDir} {
		if err := os.MkdirAll(filepath.Join(m.WorkDir, dir), 0o755); err != nil {
			return &WriteError{Path: dir, Err: err}
		}
	}
	for rel, data := range files {
		path := filepath.Join(m.WorkDir, rel)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return &WriteError{Path: rel, Err: err}
		}
	}
	for _, dir := range []string{resolversDir, functionsDir, stacksDir} {
		entries, err := os.ReadDir(filepath.Join(m.WorkDir, dir))
		if err != nil {
			return &WriteError{Path: dir, Err: err}
		}
		for _, entry := range entries {
			rel := filepath.Join(dir, entry.Name())
			if _, ok := files[rel]; ok || entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(m.WorkDir, rel)); err != nil {
				return &WriteError{Path: rel, Err: err}
			}
		}
	}
	return nil
}

// rewriteTemplate deep-copies t and resolves asset placeholders to their
// stable deployment locations.
func (m *Materializer) rewriteTemplate(t *graph.Template) (*graph.Template, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("copy template: %w", err)
	}
	var copied graph.Template
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("copy template: %w", err)
	}
	for _, res := range copied.Resources {
		if res.Properties == nil {
			continue
		}
		res.Properties = m.rewriteValue(res.Properties).(map[string]any)
	}
	return &copied, nil
}

func (m *Materializer) rewriteValue(v any) any {
	switch val := v.(type) {
	case string:
		if rel, ok := graph.ParseAssetRef(val); ok {
			return m.assetLocation(rel)
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = m.rewriteValue(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = m.rewriteValue(item)
		}
		return val
	default:
		return val
	}
}

// assetLocation maps a relative asset path to its deployment location. With
// no deployment bucket configured the working-directory relative path is the
// address.
func (m *Materializer) assetLocation(rel string) string {
	rel = filepath.ToSlash(rel)
	if m.Bucket == "" {
		return rel
	}
	parts := []string{m.Bucket}
	if m.RootKey != "" {
		parts = append(parts, m.RootKey)
	}
	parts = append(parts, rel)
	return "s3://" + strings.Join(parts, "/")
}

// parameterizeRoot installs the fixed root parameters and one nested-stack
// include per child stack, with stable logical IDs.
func (m *Materializer) parameterizeRoot(root *graph.Template, stackNames []string) {
	if root.Parameters == nil {
		root.Parameters = map[string]graph.Parameter{}
	}
	root.Parameters[ParamAPIName] = graph.Parameter{Type: "String", Description: "Name of the generated API."}
	root.Parameters[ParamEnv] = graph.Parameter{Type: "String", Description: "Deployment environment tag, at most 8 characters."}
	root.Parameters[ParamDeploymentBucket] = graph.Parameter{Type: "String", Description: "Bucket holding out-of-band assets."}
	root.Parameters[ParamDeploymentRootKey] = graph.Parameter{Type: "String", Description: "Root key prefix for out-of-band assets."}

	for _, name := range stackNames {
		root.Resources[name+"NestedStack"] = &graph.Resource{
			Type: "AWS::CloudFormation::Stack",
			Properties: map[string]any{
				"TemplateURL": m.assetLocation(stacksDir + "/" + name + ".json"),
				"Parameters": map[string]any{
					ParamAPIName:           map[string]any{"Ref": ParamAPIName},
					ParamEnv:               map[string]any{"Ref": ParamEnv},
					ParamDeploymentBucket:  map[string]any{"Ref": ParamDeploymentBucket},
					ParamDeploymentRootKey: map[string]any{"Ref": ParamDeploymentRootKey},
				},
			},
			DependsOn: []string{"GraphQLSchema"},
		}
	}
}

func marshalTemplate(t *graph.Template) ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal template: %w", err)
	}
	return append(data, '\n'), nil
}

// systemManifest is the compact inspection map written beside the assets.
type systemManifest struct {
	API       string   `json:"api"`
	Env       string   `json:"env"`
	Stacks    []string `json:"stacks"`
	Resolvers []string `json:"resolvers"`
	Functions []string `json:"functions"`
}

func buildManifest(apiName, env string, stackNames []string, g *graph.ResourceGraph) ([]byte, error) {
	manifest := systemManifest{
		API:       apiName,
		Env:       env,
		Stacks:    stackNames,
		Resolvers: g.ResolverKeys(),
		Functions: g.FunctionNames(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}
