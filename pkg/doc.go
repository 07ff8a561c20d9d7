// Package pkg provides the libraries behind kudsight, an explorer for the
// module and class graphs a code analyzer produces.
//
// # Overview
//
// A dataset is one analysis run: a JSON file of nodes (modules and classes)
// and typed links. Next to each dataset kudsight keeps a layout overlay with
// the node positions a user dragged, and optionally a rendered diagram.
// The pkg directory is organized into four areas:
//
//  1. Domain - [graph] types, [diagram] rendering
//  2. Session - the loop-confined components of an interactive session
//  3. Data - [store], [cache], [prefs] and the [backend] that ties them together
//  4. Serving - [server], [observability], [httputil]
//
// # Architecture
//
// An interactive session runs every state change on one [loop]. Blocking work
// (fetching, saving, probing) runs on goroutines and posts its result back:
//
//	user input ─→ [session] ─→ [loader] ─→ [backend] ─→ [store]
//	                  │             ↓
//	                  │       [graphstate] ─→ [selection]
//	                  │             ↓
//	                  ├────→ [render] surface
//	                  ├────→ [persist] ─→ [backend] (overlay saves)
//	                  ├────→ [viewmode] ─→ [backend] (diagram probes)
//	                  └────→ [theme] ─→ [prefs]
//
// Components publish changes on typed [event] buses and report user-facing
// problems through [notify].
//
// # Main Packages
//
// ## Domain
//
// [graph] - Dataset, node, link and overlay types with normalization, focus
// filtering and the naming rules tying overlays and diagrams to datasets.
//
// [diagram] - Static UML-style diagrams rendered with Graphviz and cached by
// dataset content hash.
//
// ## Session
//
// [session] - Composes the components below into one session.
//
// [loader] - Fetches a dataset and its overlay; stale loads are discarded.
//
// [graphstate] - The canonical dataset and the (possibly focused) view.
//
// [selection] - The category item list and the selected node ids.
//
// [persist] - Debounced layout saves.
//
// [viewmode] - Graph and diagram modes with diagram existence probes.
//
// [theme] - Light and dark themes, their palettes and the saved preference.
//
// [render] - The camera and the surface interface a front end implements.
//
// [loop], [event], [notify] - The event loop, change buses and notices.
//
// ## Data
//
// [store] - Named blobs on disk or in MongoDB.
//
// [cache] - Key-value caches on disk or in Redis.
//
// [prefs] - User preferences on top of a cache.
//
// [backend] - The data interface a session uses: local store plus analyzer,
// or an HTTP client for a remote server.
//
// [watch] - Notices dataset changes in a data directory.
//
// ## Serving
//
// [server] - The HTTP API and static asset routes.
//
// [observability] - Hooks for metrics on sessions, caches and HTTP clients.
//
// [httputil] - Retrying HTTP helpers shared by the client.
//
// [config], [errors], [buildinfo] - Configuration, coded errors and version
// information.
package pkg
