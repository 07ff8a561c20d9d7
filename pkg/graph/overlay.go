package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Overlay is a saved layout: node id to pinned position.
type Overlay map[string]Vec3

// UnmarshalOverlay decodes overlay JSON of the form {"id": {"x":..,"y":..,"z":..}}.
func UnmarshalOverlay(data []byte) (Overlay, error) {
	var o Overlay
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("unmarshal overlay: %w", err)
	}
	return o, nil
}

// ApplyOverlay pins every node that has an overlay entry at that entry's
// position. Nodes without an entry are left untouched. It returns the number
// of nodes pinned.
//
// Apply overlays only to a canonical dataset: a filtered view shares its nodes
// with the canonical dataset.
func (d *Dataset) ApplyOverlay(o Overlay) int {
	applied := 0
	for _, n := range d.Nodes {
		if p, ok := o[n.ID]; ok {
			n.PinAt(p)
			applied++
		}
	}
	return applied
}

// Positions returns the overlay of every node with a known position. A pinned
// position wins over the free one.
func (d *Dataset) Positions() Overlay {
	o := make(Overlay, len(d.Nodes))
	for _, n := range d.Nodes {
		switch {
		case n.Pin != nil:
			o[n.ID] = *n.Pin
		case n.Pos != nil:
			o[n.ID] = *n.Pos
		}
	}
	return o
}

// Hash returns a stable content hash of the dataset's nodes and links. Positions
// are not part of the hash.
func Hash(d *Dataset) string {
	h := sha256.New()
	ids := make([]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		n, _ := d.Node(id)
		b, _ := json.Marshal(n)
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	links := make([]string, 0, len(d.Links))
	for _, l := range d.Links {
		links = append(links, l.SourceID()+"\x00"+l.TargetID()+"\x00"+l.Relation)
	}
	sort.Strings(links)
	h.Write([]byte(strings.Join(links, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// =============================================================================
// File Naming
// =============================================================================

const (
	datasetExt = ".json"
	overlayExt = ".pos.json"
	diagramExt = ".png"
)

// BaseName strips the .json extension from a dataset name.
func BaseName(name string) string {
	return strings.TrimSuffix(name, datasetExt)
}

// OverlayName returns the overlay file name for a dataset.
func OverlayName(name string) string {
	return BaseName(name) + overlayExt
}

// DiagramName returns the diagram asset name for a dataset.
func DiagramName(name string) string {
	return BaseName(name) + diagramExt
}

// IsDatasetName reports whether name is a dataset file rather than an overlay.
func IsDatasetName(name string) bool {
	return strings.HasSuffix(name, datasetExt) && !strings.Contains(name, ".pos")
}
