package types

// CatalogConfig is the on-disk representation of a test case catalog
type CatalogConfig struct {
	Cases  []TestCase  `yaml:"cases"`
	Suites []TestSuite `yaml:"suites"`
}
