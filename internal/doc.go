// Package internal contains the core implementation packages for jaff.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the jaff CLI tool.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - datatree: Ordered YAML values and their lookup helpers
//   - markdown: Markdown to HTML conversion with optional sanitizing
//   - renderer: Template discovery, caching and execution
//   - resolver: Page descriptors, global data and import resolution
//   - build: Build pipeline, extra file copying and metrics
//   - eventbus: Named events with ordered, synchronous delivery
//   - watcher: File system monitoring with debouncing
//   - server: HTTP server, live reload and error overlays
//   - config, logging, errors, version: Shared infrastructure
//
// # Inter-Package Communication
//
// A build flows in one direction:
//
//   - Resolver loads a descriptor and resolves its imports into a datatree
//   - Renderer executes the named template with that context
//   - Build pipeline writes each page and publishes its result on the bus
//   - Server subscribes to the bus and notifies live reload clients
//   - Watcher triggers a full rebuild when sources change
//
// A failure is confined to its page. The pipeline records it in an
// errors.Collector and carries on with the remaining pages.
package internal
