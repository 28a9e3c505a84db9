package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/refinery/internal/config"
	"github.com/vk/refinery/internal/ctxlog"
)

// ErrInvalidManifest is wrapped by every error caused by manifest content
// that parses but does not make sense.
var ErrInvalidManifest = errors.New("invalid manifest")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Refiners []*RefinerBlock `hcl:"refiner,block"`
	Views    []*ViewBlock    `hcl:"view,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

// Load parses every .hcl file reachable from paths and compiles the
// refiner and view blocks into the model. Refiner and view names must be
// unique across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.NewModel()
	seen := make(map[string]string)

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, block := range root.Refiners {
			if prev, dup := seen[block.Name]; dup {
				return nil, fmt.Errorf("%w: refiner '%s' in %s is already defined in %s", ErrInvalidManifest, block.Name, file, prev)
			}
			seen[block.Name] = file

			def, err := l.translateRefiner(ctx, block)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Definitions = append(model.Definitions, def)
		}
		for _, block := range root.Views {
			if _, dup := model.Views[block.Name]; dup {
				return nil, fmt.Errorf("%w: view '%s' in %s is already defined", ErrInvalidManifest, block.Name, file)
			}
			view, err := l.translateView(ctx, block)
			if err != nil {
				return nil, fmt.Errorf("in %s: %w", file, err)
			}
			model.Views[view.Name] = view
		}
	}

	logger.Debug("HCL loading complete.", "refiners", len(model.Definitions), "views", len(model.Views))
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
