// Package schema provides embedded JSON schemas for sr-acceptor input files.
package schema

import "embed"

// FS contains the embedded schema files.
//
//go:embed *.schema.json
var FS embed.FS

// CatalogSchema is the file name of the test case catalog schema.
const CatalogSchema = "catalog.schema.json"
