// Package mustgather reads OpenShift must-gather bundles into unstructured
// objects and summarises them for the Analyst.
package mustgather

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/moolen/troubleshooter/internal/logging"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

const (
	clusterScopedDir = "cluster-scoped-resources"
	namespacesDir    = "namespaces"
)

// ErrNotDirectory is returned when the bundle path is not a directory.
var ErrNotDirectory = errors.New("must-gather path is not a directory")

// Metadata describes the bundle itself.
type Metadata struct {
	Path         string
	ContainerDir string
	Version      string
	StartTime    time.Time
	EndTime      time.Time
}

// Bundle is a loaded must-gather.
type Bundle struct {
	Metadata   Metadata
	Resources  []*unstructured.Unstructured
	Namespaces []string
}

// Load reads every YAML resource of the bundle rooted at path.
func Load(ctx context.Context, path string) (*Bundle, error) {
	logger := logging.GetLogger("mustgather")

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat must-gather %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, path)
	}

	containerDir := findContainerDir(path)
	b := &Bundle{Metadata: Metadata{Path: path, ContainerDir: containerDir}}
	readMetadata(containerDir, &b.Metadata)

	if dir := filepath.Join(containerDir, clusterScopedDir); isDir(dir) {
		resources, err := loadTree(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load cluster-scoped resources: %w", err)
		}
		b.Resources = append(b.Resources, resources...)
	}

	if dir := filepath.Join(containerDir, namespacesDir); isDir(dir) {
		resources, namespaces, err := loadNamespaces(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load namespaced resources: %w", err)
		}
		b.Resources = append(b.Resources, resources...)
		b.Namespaces = namespaces
	}

	logger.DebugWithFields("Loaded must-gather",
		logging.Field("path", path),
		logging.Field("resources", len(b.Resources)),
		logging.Field("namespaces", len(b.Namespaces)))
	return b, nil
}

// findContainerDir returns the image-named directory most bundles nest their
// data under, or root itself.
func findContainerDir(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return root
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasPrefix(name, "quay") || strings.Contains(name, "sha256") {
			return filepath.Join(root, name)
		}
	}
	return root
}

func readMetadata(dir string, md *Metadata) {
	if data, err := os.ReadFile(filepath.Join(dir, "version")); err == nil {
		md.Version = strings.TrimSpace(string(data))
	}
	data, err := os.ReadFile(filepath.Join(dir, "timestamp"))
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok {
			continue
		}
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
		if err != nil {
			continue
		}
		switch key {
		case "started":
			md.StartTime = t
		case "ended":
			md.EndTime = t
		}
	}
}

func loadNamespaces(ctx context.Context, dir string) ([]*unstructured.Unstructured, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var namespaces []string
	for _, e := range entries {
		if e.IsDir() {
			namespaces = append(namespaces, e.Name())
		}
	}
	sort.Strings(namespaces)

	perNamespace := make([][]*unstructured.Unstructured, len(namespaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ns := range namespaces {
		g.Go(func() error {
			resources, err := loadTree(gctx, filepath.Join(dir, ns))
			if err != nil {
				return fmt.Errorf("namespace %s: %w", ns, err)
			}
			perNamespace[i] = resources
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []*unstructured.Unstructured
	for _, r := range perNamespace {
		all = append(all, r...)
	}
	return all, namespaces, nil
}

// loadTree parses every YAML file below dir. Unparseable files are logged
// and skipped.
func loadTree(ctx context.Context, dir string) ([]*unstructured.Unstructured, error) {
	logger := logging.GetLogger("mustgather")

	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isYAML(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	out := make([][]*unstructured.Unstructured, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			objs, err := loadFile(f)
			if err != nil {
				logger.Warn("Skipping %s: %v", f, err)
				return nil
			}
			out[i] = objs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var resources []*unstructured.Unstructured
	for _, objs := range out {
		resources = append(resources, objs...)
	}
	return resources, nil
}

// loadFile returns the objects in one file, expanding *List kinds.
func loadFile(path string) ([]*unstructured.Unstructured, error) {
	// #nosec G304 -- paths come from walking the bundle
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var obj map[string]interface{}
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if len(obj) == 0 {
		return nil, nil
	}

	kind, _, _ := unstructured.NestedString(obj, "kind")
	if !strings.HasSuffix(kind, "List") {
		return []*unstructured.Unstructured{{Object: obj}}, nil
	}

	// NestedSlice deep-copies and rejects the int types yaml.v3 produces.
	items, _ := obj["items"].([]interface{})
	resources := make([]*unstructured.Unstructured, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			resources = append(resources, &unstructured.Unstructured{Object: m})
		}
	}
	return resources, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
