package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/kbasefaqs/sr-acceptor/types"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// DefaultCatalogName is reported as the source when no catalog file is configured
const DefaultCatalogName = "<embedded>"

// Registry holds the test case catalog. It is loaded once and read-only afterwards.
type Registry struct {
	config     Config
	source     string
	cases      map[string]types.TestCase
	caseOrder  []string
	suites     map[string]types.TestSuite
	suiteOrder []string
}

// Config contains registry configuration
type Config struct {
	Log            log.Logger
	CatalogFile    string        // Path to a catalog YAML file; empty selects the embedded catalog
	DefaultTimeout time.Duration // Applied to cases that do not set their own timeout
}

// NewRegistry creates a new registry instance from the configured catalog file
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	source := cfg.CatalogFile
	data := defaultCatalog
	if source == "" {
		source = DefaultCatalogName
	} else {
		cfg.Log.Debug("Reading catalog file", "path", source)
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("reading catalog file: %w", err)
		}
	}

	catalog, err := parseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", source, err)
	}

	r, err := NewRegistryFromCatalog(cfg, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", source, err)
	}
	r.source = source
	return r, nil
}

// NewRegistryFromCatalog builds a registry from an in-memory catalog, as
// supplied by an embedding test harness.
func NewRegistryFromCatalog(cfg Config, catalog *types.CatalogConfig) (*Registry, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}

	r := &Registry{
		config: cfg,
		source: "<memory>",
		cases:  make(map[string]types.TestCase, len(catalog.Cases)),
		suites: make(map[string]types.TestSuite, len(catalog.Suites)),
	}
	if err := r.loadCases(catalog.Cases); err != nil {
		return nil, err
	}
	if err := r.loadSuites(catalog.Suites); err != nil {
		return nil, err
	}

	cfg.Log.Debug("Registry loaded", "len(cases)", len(r.cases), "len(suites)", len(r.suites))
	return r, nil
}

// parseCatalog validates raw YAML against the catalog schema and decodes it
func parseCatalog(data []byte) (*types.CatalogConfig, error) {
	if err := ValidateCatalog(data); err != nil {
		return nil, err
	}

	var cfg types.CatalogConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &cfg, nil
}

func (r *Registry) loadCases(cases []types.TestCase) error {
	for _, c := range cases {
		tc := c.Normalized()
		if tc.Name == "" {
			return errors.New("test case name cannot be empty")
		}
		if _, exists := r.cases[tc.Name]; exists {
			return fmt.Errorf("duplicate test case %q", tc.Name)
		}
		if strings.TrimSpace(tc.Target) == "" {
			return fmt.Errorf("test case %q has no target", tc.Name)
		}
		if strings.TrimSpace(tc.ExpectedAnnouncement) == "" {
			return fmt.Errorf("test case %q has no expected announcement", tc.Name)
		}
		if tc.Timeout == 0 {
			tc.Timeout = r.config.DefaultTimeout
		}
		r.cases[tc.Name] = tc
		r.caseOrder = append(r.caseOrder, tc.Name)
	}
	return nil
}

func (r *Registry) loadSuites(suites []types.TestSuite) error {
	owner := make(map[string]string)
	for _, s := range suites {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return errors.New("suite name cannot be empty")
		}
		if _, exists := r.suites[name]; exists {
			return fmt.Errorf("duplicate suite %q", name)
		}
		if len(s.Cases) == 0 {
			return fmt.Errorf("suite %q has no cases", name)
		}
		for _, caseName := range s.Cases {
			if _, ok := r.cases[caseName]; !ok {
				return fmt.Errorf("suite %q references unknown test case %q", name, caseName)
			}
			if prev, taken := owner[caseName]; taken {
				return fmt.Errorf("test case %q belongs to both suite %q and suite %q", caseName, prev, name)
			}
			owner[caseName] = name
		}
		r.suites[name] = types.TestSuite{
			Name:        name,
			Description: s.Description,
			Cases:       slices.Clone(s.Cases),
		}
		r.suiteOrder = append(r.suiteOrder, name)
	}
	return nil
}

// Source returns where the catalog was loaded from
func (r *Registry) Source() string {
	return r.source
}

// SuiteNames returns suite names in catalog order
func (r *Registry) SuiteNames() []string {
	return slices.Clone(r.suiteOrder)
}

// CaseNames returns case names in catalog order
func (r *Registry) CaseNames() []string {
	return slices.Clone(r.caseOrder)
}

// Suite returns a copy of the named suite
func (r *Registry) Suite(name string) (types.TestSuite, bool) {
	s, ok := r.suites[name]
	if !ok {
		return types.TestSuite{}, false
	}
	s.Cases = slices.Clone(s.Cases)
	return s, true
}

// Case returns a copy of the named test case
func (r *Registry) Case(name string) (types.TestCase, bool) {
	tc, ok := r.cases[name]
	if !ok {
		return types.TestCase{}, false
	}
	return tc.Clone(), true
}

// CasesForSuite returns copies of a suite's cases in execution order
func (r *Registry) CasesForSuite(name string) ([]types.TestCase, error) {
	s, ok := r.suites[name]
	if !ok {
		return nil, fmt.Errorf("unknown suite %q (available: %s)", name, strings.Join(r.suiteOrder, ", "))
	}
	cases := make([]types.TestCase, 0, len(s.Cases))
	for _, caseName := range s.Cases {
		cases = append(cases, r.cases[caseName].Clone())
	}
	return cases, nil
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}
