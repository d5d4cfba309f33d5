package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/goldenthread/extract"
	"github.com/c360studio/goldenthread/manifest"
	"github.com/c360studio/goldenthread/registry"
	"github.com/c360studio/goldenthread/trace"
)

// serviceConcurrency bounds how many services validate at once. Registry
// throughput is governed by the shared client's rate limiter, not here.
const serviceConcurrency = 4

// Service is one validation target: a directory holding a manifest.
type Service struct {
	Name string
	Dir  string
}

// Runner orchestrates a validation run across services. Each service is
// validated independently; one broken manifest never hides findings from
// its neighbors.
type Runner struct {
	// Registry resolves IDs. Nil runs structure-only validation (coverage
	// and orphans) with no consistency checks, used by the orphans command.
	Registry *registry.Client

	// IgnorePatterns removes files from orphan consideration globally,
	// on top of per-manifest exclusions.
	IgnorePatterns []string

	// Languages restricts extraction to the named parsers. Empty means all
	// registered parsers.
	Languages []string

	// Workers bounds per-service extraction concurrency.
	Workers int

	ToolVersion string
	Logger      *slog.Logger
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// skipDiscoveryDirs are directory names never searched for manifests.
var skipDiscoveryDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"__pycache__":  true,
	"venv":         true,
	"env":          true,
	"dist":         true,
	"build":        true,
}

// Discover walks root and returns one Service per manifest file found,
// sorted by name. The service name comes from the manifest's directory.
func Discover(root string) ([]Service, error) {
	var services []Service
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDiscoveryDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != manifest.DefaultFilename {
			return nil
		}
		dir := filepath.Dir(path)
		name := filepath.Base(dir)
		if abs, err := filepath.Abs(dir); err == nil {
			name = filepath.Base(abs)
		}
		services = append(services, Service{Name: name, Dir: dir})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover services: %w", err)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
	return services, nil
}

// Run validates every service and aggregates the outcome. The returned
// error is non-nil only for run-level failures (registry unreachable,
// context deadline); validation findings live in the result.
func (r *Runner) Run(ctx context.Context, services []Service, strict bool) (*trace.ValidationResult, error) {
	result := &trace.ValidationResult{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		ToolVersion: r.ToolVersion,
	}

	outcomes := make([]trace.ServiceResult, len(services))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(serviceConcurrency)

	for i, svc := range services {
		i, svc := i, svc
		g.Go(func() error {
			sr, err := r.validateService(ctx, svc)
			if err != nil {
				return err
			}
			outcomes[i] = sr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: run deadline exceeded", registry.ErrUnavailable)
		}
		return nil, err
	}

	result.Services = outcomes
	result.Finalize(strict)
	return result, nil
}

// validateService runs the full validator pipeline for one service.
func (r *Runner) validateService(ctx context.Context, svc Service) (trace.ServiceResult, error) {
	log := r.logger().With("service", svc.Name)
	sr := trace.ServiceResult{Service: svc.Name}

	m, err := manifest.Load(filepath.Join(svc.Dir, manifest.DefaultFilename))
	if err != nil {
		var schemaErr *manifest.SchemaError
		if errors.As(err, &schemaErr) {
			log.Error("Manifest rejected", "violations", len(schemaErr.Violations))
			sr.Fatal = true
			for _, v := range schemaErr.Violations {
				sr.Diagnostics = append(sr.Diagnostics,
					trace.New(trace.CodeManifestSchema, svc.Name, v))
			}
			r.attachService(&sr)
			return sr, nil
		}
		return sr, fmt.Errorf("load manifest for %s: %w", svc.Name, err)
	}
	if m.Service != "" {
		sr.Service = m.Service
	}

	exResult, err := r.extractSymbols(ctx, svc.Dir, m)
	if err != nil {
		return sr, fmt.Errorf("extract symbols for %s: %w", sr.Service, err)
	}
	for _, pe := range exResult.ParseErrors {
		d := trace.New(trace.CodeParseError, pe.File,
			fmt.Sprintf("failed to parse %s: %v", pe.File, pe.Err))
		sr.Diagnostics = append(sr.Diagnostics, d)
	}

	covDiags, stats := CheckCoverage(m)
	sr.Diagnostics = append(sr.Diagnostics, covDiags...)
	sr.Diagnostics = append(sr.Diagnostics, CheckOrphans(m, exResult.Symbols, r.IgnorePatterns)...)

	validIDs, formatDiags := CheckFormat(m)
	sr.Diagnostics = append(sr.Diagnostics, formatDiags...)

	if r.Registry != nil {
		res, err := resolveChain(ctx, r.Registry, validIDs)
		if err != nil {
			return sr, err
		}
		sr.Diagnostics = append(sr.Diagnostics, CheckConsistency(res)...)
		sr.Diagnostics = append(sr.Diagnostics, CheckResolvedLinks(m, res)...)

		// A requirement only counts as covered when it also resolves.
		mapped := m.MappedRequirementIDs()
		for id := range res.Missing {
			if t, ok := trace.TypeOf(id); ok && trace.IsRequirement(t) && mapped[id] {
				stats.CoveredIDs--
			}
		}
		stats.Recompute()
	}

	stats.TotalSymbols = len(exResult.Symbols)
	declared := m.SymbolPaths()
	for _, sym := range exResult.Symbols {
		if declared[sym.QualifiedPath()] {
			stats.MappedSymbols++
		}
	}
	sr.Coverage = stats

	r.attachService(&sr)
	log.Info("Service validated",
		"diagnostics", len(sr.Diagnostics),
		"coverage_pct", fmt.Sprintf("%.1f", stats.Percentage))
	return sr, nil
}

// extractSymbols runs extraction rooted at the service directory with the
// manifest's exclusion patterns applied.
func (r *Runner) extractSymbols(ctx context.Context, dir string, m *manifest.Manifest) (*extract.Result, error) {
	opts := []extract.Option{
		extract.WithExclusions(append(append([]string{}, r.IgnorePatterns...), m.Exclusions.Patterns...)),
		extract.WithLogger(r.logger()),
	}
	if len(r.Languages) > 0 {
		opts = append(opts, extract.WithLanguages(r.Languages))
	}
	if r.Workers > 0 {
		opts = append(opts, extract.WithWorkers(r.Workers))
	}
	return extract.NewExtractor(dir, opts...).Extract(ctx)
}

// attachService stamps the service name onto every diagnostic.
func (r *Runner) attachService(sr *trace.ServiceResult) {
	for i := range sr.Diagnostics {
		sr.Diagnostics[i].Service = sr.Service
	}
}
