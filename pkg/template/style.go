package template

import "image/color"

// StyleKind tags the concrete RenderStyle variant
type StyleKind string

const (
	KindSolid       StyleKind = "solid"
	KindDouble      StyleKind = "double"
	KindGlow        StyleKind = "glow"
	KindFilmstrip   StyleKind = "filmstrip"
	KindPolaroid    StyleKind = "polaroid"
	KindGradient    StyleKind = "gradient"
	KindCustomFrame StyleKind = "custom-frame"
)

// RenderStyle is the closed set of ways a template draws around its photos.
// Each variant carries only the fields it needs.
type RenderStyle interface {
	Kind() StyleKind
	isRenderStyle()
}

// Solid fills the canvas with one color; the inset slots leave it as a border
type Solid struct {
	Background color.NRGBA
}

// Double draws a background plus an inner outline around every slot
type Double struct {
	Outer     color.NRGBA
	Inner     color.NRGBA
	LineWidth float64
	Gap       float64
}

// Glow draws a soft halo around every slot on a dark background
type Glow struct {
	Background color.NRGBA
	Color      color.NRGBA
	Radius     float64
}

// Filmstrip draws a dark strip with sprocket holes along both long edges
type Filmstrip struct {
	Background   color.NRGBA
	Sprocket     color.NRGBA
	SprocketSize float64
}

// Polaroid draws a white card with a caption band under the last slot
type Polaroid struct {
	Card      color.NRGBA
	Caption   string
	TextColor color.NRGBA
}

// Gradient fills the canvas with a vertical linear gradient
type Gradient struct {
	From color.NRGBA
	To   color.NRGBA
}

// CustomFrame draws frame artwork over the photos. FrameRef is a file path,
// an http(s) URL or a data: URI.
type CustomFrame struct {
	FrameRef string
}

func (Solid) Kind() StyleKind       { return KindSolid }
func (Double) Kind() StyleKind      { return KindDouble }
func (Glow) Kind() StyleKind        { return KindGlow }
func (Filmstrip) Kind() StyleKind   { return KindFilmstrip }
func (Polaroid) Kind() StyleKind    { return KindPolaroid }
func (Gradient) Kind() StyleKind    { return KindGradient }
func (CustomFrame) Kind() StyleKind { return KindCustomFrame }

func (Solid) isRenderStyle()       {}
func (Double) isRenderStyle()      {}
func (Glow) isRenderStyle()        {}
func (Filmstrip) isRenderStyle()   {}
func (Polaroid) isRenderStyle()    {}
func (Gradient) isRenderStyle()    {}
func (CustomFrame) isRenderStyle() {}
