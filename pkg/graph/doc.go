// Package graph provides the data model for software-structure graphs.
//
// A [Dataset] is the output of one code-analysis run: module and class
// [Node]s connected by typed [Link]s. An [Overlay] is a saved table of node
// positions layered onto a dataset at load time.
//
// # Wire Format
//
// Datasets use the node-link JSON format written by the analyzer:
//
//	{
//	  "nodes": [{"id": "app.Main", "type": "class", "package": "app"}],
//	  "links": [{"source": "app.Main", "target": "app.Util", "relation": "uses"}],
//	  "analysisSourcePath": "/src/app"
//	}
//
// Overlays map node ids to coordinates:
//
//	{"app.Main": {"x": 1, "y": 2, "z": 3}}
//
// # Link Endpoints
//
// A link endpoint is either a raw node id (as decoded from JSON) or a
// reference to the resolved [Node] (after [Dataset.Resolve]). Consumers never
// inspect the shape themselves; they call [EndpointID].
//
// # File Naming
//
// Related resources are derived from the dataset name:
//
//	graph.OverlayName("run-42.json")  // "run-42.pos.json"
//	graph.DiagramName("run-42.json")  // "run-42.png"
//
// # Concurrency
//
// Datasets are not synchronized. They are owned by the session event loop;
// hand a [Dataset.Clone] to any other goroutine.
package graph
