package theme

// Shadow is the drop shadow drawn under nodes.
type Shadow struct {
	Color string
	Blur  float64
}

// Palette holds every color and size a render surface needs for a theme.
// Colors are CSS color strings.
type Palette struct {
	Background      string // node fill
	Stroke          string // node border
	Title           string
	Attribute       string
	Method          string
	LinkColor       string
	ArrowColor      string
	BackgroundColor string // scene background
	NodeSize        float64
	Shadow          Shadow
}

var palettes = map[Theme]Palette{
	Dark: {
		Background:      "#ffffff",
		Stroke:          "#000000",
		Title:           "#000000",
		Attribute:       "#007bff",
		Method:          "#e44c1a",
		LinkColor:       "#ffffff",
		ArrowColor:      "#ffffff",
		BackgroundColor: "#111827",
		NodeSize:        40,
		Shadow:          Shadow{Color: "rgba(0,0,0,0.8)", Blur: 10},
	},
	Light: {
		Background:      "#ffffff",
		Stroke:          "#333333",
		Title:           "#000000",
		Attribute:       "#0056b3",
		Method:          "#c13a10",
		LinkColor:       "#333333",
		ArrowColor:      "#333333",
		BackgroundColor: "#f0f0f0",
		NodeSize:        38,
		Shadow:          Shadow{Color: "rgba(0,0,0,0.2)", Blur: 15},
	},
}

// PaletteFor returns the palette of t. Unknown themes get the dark palette.
func PaletteFor(t Theme) Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[Dark]
}
