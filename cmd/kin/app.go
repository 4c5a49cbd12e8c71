package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/linkage/internal/config"
	"github.com/chazu/linkage/pkg/engine"
	"github.com/chazu/linkage/pkg/ik"
	"github.com/chazu/linkage/pkg/kernel"
	"github.com/chazu/linkage/pkg/kernel/sdfx"
	"github.com/chazu/linkage/pkg/kinematics"
	"github.com/chazu/linkage/pkg/spatial"
	"github.com/chazu/linkage/pkg/tessellate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

// colorPalette is a default palette used to assign distinct colors to links.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App bundles everything the subcommands share: the description engine, the
// geometry kernel and the IK solver.
type App struct {
	engine   *engine.Engine
	kernel   kernel.Kernel
	solver   *ik.JacobianSolver
	registry *prometheus.Registry
	log      *zap.Logger
}

// MeshData is the JSON-serializable mesh format written by the mesh command.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// NewApp wires the components from cfg.
func NewApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	reg := prometheus.NewRegistry()
	solver, err := ik.NewJacobianSolver(cfg.Solver,
		ik.WithLogger(log.Named("ik")),
		ik.WithMetrics(ik.NewMetrics(reg)))
	if err != nil {
		return nil, err
	}
	return &App{
		engine: engine.NewEngine(
			engine.WithLogger(log.Named("engine")),
			engine.WithTimeout(cfg.GetEvalTimeout())),
		kernel:   sdfx.New(sdfx.WithCells(cfg.Mesh.Cells)),
		solver:   solver,
		registry: reg,
		log:      log,
	}, nil
}

// Load reads and evaluates a robot description file.
func (a *App) Load(path string) (*kinematics.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read description: %w", err)
	}
	t, err := a.LoadSource(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadSource evaluates a robot description. Eval errors are joined into the
// returned error; warnings are logged.
func (a *App) LoadSource(source string) (*kinematics.Tree, error) {
	res, err := a.engine.EvaluateResult(source)
	if err != nil {
		return nil, err
	}
	for _, w := range res.Warnings {
		a.log.Warn("description warning", zap.String("link", w.Link), zap.String("message", w.Message))
	}
	if len(res.Errors) > 0 {
		errs := make([]error, len(res.Errors))
		for i, e := range res.Errors {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}
	return res.Tree, nil
}

// Chain returns the chain from the tree root to the named link.
func (a *App) Chain(t *kinematics.Tree, end string) (*kinematics.Chain, error) {
	c, ok := t.ChainFromEndLinkName(end)
	if !ok {
		return nil, fmt.Errorf("%w: link %q in %s", kinematics.ErrNotFound, end, t.Name)
	}
	return c, nil
}

// Solve runs inverse kinematics on c from its current angles.
func (a *App) Solve(c *kinematics.Chain, target spatial.Isometry) (ik.Result, error) {
	return a.solver.SolveWithResult(c, target)
}

// Meshes tessellates t at its current joint values. merge unions every link
// into a single mesh.
func (a *App) Meshes(t *kinematics.Tree, merge bool) ([]MeshData, error) {
	var meshes []*kernel.Mesh
	if merge {
		m, err := tessellate.Merge(t, a.kernel)
		if err != nil {
			return nil, err
		}
		if !m.IsEmpty() {
			meshes = append(meshes, m)
		}
	} else {
		var err error
		if meshes, err = tessellate.Tessellate(t, a.kernel); err != nil {
			return nil, err
		}
	}

	out := make([]MeshData, 0, len(meshes))
	for i, m := range meshes {
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}
	return out, nil
}

// WriteMetrics writes the solver metrics in the Prometheus text format.
func (a *App) WriteMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}
