package assets

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type capturingPutter struct {
	objects map[string]string
	types   map[string]string
}

func (c *capturingPutter) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	c.objects[*input.Key] = string(data)
	c.types[*input.Key] = *input.ContentType
	return &s3.PutObjectOutput{}, nil
}

func newCapturingPutter() *capturingPutter {
	return &capturingPutter{objects: map[string]string{}, types: map[string]string{}}
}

func TestNewDeploymentRootKey(t *testing.T) {
	first := NewDeploymentRootKey()
	if !strings.HasPrefix(first, "deployments/") {
		t.Fatalf("root key = %q", first)
	}
	if second := NewDeploymentRootKey(); second == first {
		t.Fatal("root key reused across deployments")
	}
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	rootKey := NewDeploymentRootKey()
	m := &Materializer{WorkDir: dir, Bucket: "deploy-bucket", RootKey: rootKey}
	a, err := m.Materialize("todoapi", "dev", "type Todo { id: ID! }", testGraph(t), nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	putter := newCapturingPutter()
	p := NewPublisherWithClient(putter, "deploy-bucket", dir)
	if err := p.Publish(context.Background(), a, rootKey); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(putter.objects) != len(a.Files) {
		t.Fatalf("uploaded %d objects, want %d", len(putter.objects), len(a.Files))
	}

	schemaKey := rootKey + "/schema.graphql"
	if putter.objects[schemaKey] != "type Todo { id: ID! }" {
		t.Fatalf("schema body = %q", putter.objects[schemaKey])
	}
	if putter.types[rootKey+"/manifest.json"] != "application/json" {
		t.Fatalf("manifest content type = %q", putter.types[rootKey+"/manifest.json"])
	}
	if putter.types[rootKey+"/functions/echo-fn.js"] != "application/javascript" {
		t.Fatalf("function content type = %q", putter.types[rootKey+"/functions/echo-fn.js"])
	}
	if putter.types[schemaKey] != "text/plain" {
		t.Fatalf("schema content type = %q", putter.types[schemaKey])
	}
}

// The materialize/publish round trip must be internally consistent: the
// uploaded root template references its nested stacks at the locations the
// same upload creates, never as bare working-directory paths.
func TestPublish_UploadedTemplatesReferenceUploadedLocations(t *testing.T) {
	dir := t.TempDir()
	rootKey := NewDeploymentRootKey()
	m := &Materializer{WorkDir: dir, Bucket: "deploy-bucket", RootKey: rootKey}
	a, err := m.Materialize("todoapi", "dev", "schema", testGraph(t), nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	putter := newCapturingPutter()
	p := NewPublisherWithClient(putter, "deploy-bucket", dir)
	if err := p.Publish(context.Background(), a, rootKey); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	root := putter.objects[rootKey+"/root-cloudformation-template.json"]
	if root == "" {
		t.Fatal("root template not uploaded")
	}
	wantURL := "s3://deploy-bucket/" + rootKey + "/stacks/Todo.json"
	if !strings.Contains(root, wantURL) {
		t.Fatalf("root template lacks nested stack location %q:\n%s", wantURL, root)
	}
	if strings.Contains(root, `"TemplateURL": "stacks/`) {
		t.Fatalf("root template references a working-directory path:\n%s", root)
	}
	stack := putter.objects[rootKey+"/stacks/Todo.json"]
	if !strings.Contains(stack, "s3://deploy-bucket/"+rootKey+"/resolvers/Query.getTodo.req.vtl") {
		t.Fatalf("stack template lacks uploaded resolver location:\n%s", stack)
	}
}

func TestPublish_MissingAssetFails(t *testing.T) {
	dir := t.TempDir()
	m := &Materializer{WorkDir: dir}
	a, err := m.Materialize("todoapi", "dev", "schema", testGraph(t), nil)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "schema.graphql")); err != nil {
		t.Fatalf("remove asset: %v", err)
	}
	p := NewPublisherWithClient(newCapturingPutter(), "deploy-bucket", dir)
	if err := p.Publish(context.Background(), a, NewDeploymentRootKey()); err == nil {
		t.Fatal("publish succeeded with a missing asset")
	}
}
