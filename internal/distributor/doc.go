// Package distributor composes allocators and refiners into end-to-end
// distribution workflows. A Pipeline runs one allocator followed by a
// refinement schedule; Concurrent races several pipelines over a worker
// pool and keeps the cheapest result.
package distributor
