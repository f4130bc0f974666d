package hclcfg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/qcdist/internal/config"
	"github.com/vk/qcdist/internal/ctxlog"
	"github.com/vk/qcdist/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes all possible top-level blocks from any file.
type fileRoot struct {
	Networks  []*networkHCL  `hcl:"network,block"`
	Circuits  []*circuitHCL  `hcl:"circuit,block"`
	Workflows []*workflowHCL `hcl:"workflow,block"`
	Solvers   []*solverHCL   `hcl:"solver,block"`
	Remain    hcl.Body       `hcl:",remain"`
}

type networkHCL struct {
	Kind            string     `hcl:"kind,label"`
	Servers         int        `hcl:"servers,optional"`
	QubitsPerServer int        `hcl:"qubits_per_server,optional"`
	Seed            int64      `hcl:"seed,optional"`
	EdgeProb        float64    `hcl:"edge_prob,optional"`
	Attach          int        `hcl:"attach,optional"`
	Ring            int        `hcl:"ring,optional"`
	RewireProb      float64    `hcl:"rewire_prob,optional"`
	Hosts           []*hostHCL `hcl:"host,block"`
	Links           []*linkHCL `hcl:"link,block"`
}

type hostHCL struct {
	ID         string `hcl:"id,label"`
	Qubits     int    `hcl:"qubits"`
	EbitMemory *int   `hcl:"ebit_memory,optional"`
}

type linkHCL struct {
	A int `hcl:"a"`
	B int `hcl:"b"`
}

type circuitHCL struct {
	Path string `hcl:"path"`
}

type workflowHCL struct {
	Strategy   string    `hcl:"strategy,label"`
	Seed       int64     `hcl:"seed,optional"`
	Iterations int       `hcl:"iterations,optional"`
	Rounds     int       `hcl:"rounds,optional"`
	Options    cty.Value `hcl:"options,optional"`
}

type solverHCL struct {
	URL            string `hcl:"url"`
	TimeoutSeconds int    `hcl:"timeout_seconds,optional"`
}

// Load orchestrates the HCL loading process. It is agnostic to the origin
// of the paths and accepts any valid block from any file; later files
// override earlier singleton blocks, workflows accumulate.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{}

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

		for _, network := range root.Networks {
			translated, err := l.translateNetwork(network)
			if err != nil {
				return nil, fmt.Errorf("file %s: %w", file, err)
			}
			model.Network = translated
		}
		for _, circ := range root.Circuits {
			model.Circuit = &config.Circuit{Path: circ.Path}
		}
		for _, workflow := range root.Workflows {
			translated, err := l.translateWorkflow(workflow)
			if err != nil {
				return nil, fmt.Errorf("file %s: %w", file, err)
			}
			model.Workflows = append(model.Workflows, translated)
		}
		for _, s := range root.Solvers {
			model.Solver = &config.Solver{URL: s.URL, TimeoutSeconds: s.TimeoutSeconds}
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "workflows", len(model.Workflows))
	return model, nil
}

func (l *Loader) translateNetwork(in *networkHCL) (*config.Network, error) {
	out := &config.Network{
		Kind:            in.Kind,
		Servers:         in.Servers,
		QubitsPerServer: in.QubitsPerServer,
		Seed:            in.Seed,
		EdgeProb:        in.EdgeProb,
		Attach:          in.Attach,
		Ring:            in.Ring,
		RewireProb:      in.RewireProb,
	}
	for _, host := range in.Hosts {
		id, err := strconv.Atoi(host.ID)
		if err != nil {
			return nil, fmt.Errorf("host label %q is not a server id: %w", host.ID, err)
		}
		mem := -1
		if host.EbitMemory != nil {
			mem = *host.EbitMemory
		}
		out.Hosts = append(out.Hosts, &config.Host{ID: id, Qubits: host.Qubits, EbitMemory: mem})
	}
	for _, link := range in.Links {
		out.Links = append(out.Links, config.Link{A: link.A, B: link.B})
	}
	return out, nil
}

func (l *Loader) translateWorkflow(in *workflowHCL) (*config.Workflow, error) {
	out := &config.Workflow{
		Strategy:   in.Strategy,
		Seed:       in.Seed,
		Iterations: in.Iterations,
		Rounds:     in.Rounds,
	}
	if in.Options != cty.NilVal && !in.Options.IsNull() {
		if !in.Options.Type().IsObjectType() && !in.Options.Type().IsMapType() {
			return nil, fmt.Errorf("workflow %q: options must be a map", in.Strategy)
		}
		out.Options = make(map[string]cty.Value)
		for it := in.Options.ElementIterator(); it.Next(); {
			key, val := it.Element()
			out.Options[key.AsString()] = val
		}
	}
	return out, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found, deduplicated, in discovery order.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			files, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				if _, wasSeen := seen[f]; !wasSeen {
					allFiles = append(allFiles, f)
					seen[f] = struct{}{}
				}
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
