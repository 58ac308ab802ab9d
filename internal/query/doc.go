// Package query turns listing filters into a validated descriptor, pages
// results, and defines the response envelope every entry point returns.
package query
