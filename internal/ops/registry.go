package ops

import (
	"fmt"
	"sort"

	"github.com/ironsheep/image-edit-mcp/internal/editor"
	imgutil "github.com/ironsheep/image-edit-mcp/internal/imaging"
)

// Param describes one argument of an operation.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // JSON schema type
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
}

// Operation is a named command constructor.
type Operation struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`

	build func(Params) (editor.CommandWithProgress, error)
}

var registry = map[string]*Operation{}

func register(op *Operation) {
	if _, dup := registry[op.Name]; dup {
		panic("ops: duplicate operation " + op.Name)
	}
	registry[op.Name] = op
}

// Lookup returns the operation registered under name.
func Lookup(name string) (*Operation, bool) {
	op, ok := registry[name]
	return op, ok
}

// List returns all operations sorted by name.
func List() []*Operation {
	list := make([]*Operation, 0, len(registry))
	for _, op := range registry {
		list = append(list, op)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Build constructs the named operation from params.
func Build(name string, params Params) (editor.CommandWithProgress, error) {
	op, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	cmd, err := op.build(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", name, err)
	}
	return cmd, nil
}

var regionParams = []Param{
	{Name: "x1", Type: "integer", Description: "Left edge (inclusive)", Required: true},
	{Name: "y1", Type: "integer", Description: "Top edge (inclusive)", Required: true},
	{Name: "x2", Type: "integer", Description: "Right edge (exclusive)", Required: true},
	{Name: "y2", Type: "integer", Description: "Bottom edge (exclusive)", Required: true},
}

func withRegion(extra ...Param) []Param {
	return append(append([]Param(nil), regionParams...), extra...)
}

// noParams adapts a constructor without arguments.
func noParams(fn func() editor.CommandWithProgress) func(Params) (editor.CommandWithProgress, error) {
	return func(Params) (editor.CommandWithProgress, error) { return fn(), nil }
}

// floatParam adapts a constructor taking one number.
func floatParam(name string, def float64, fn func(float64) (editor.CommandWithProgress, error)) func(Params) (editor.CommandWithProgress, error) {
	return func(p Params) (editor.CommandWithProgress, error) {
		v, err := p.Float(name, def)
		if err != nil {
			return nil, err
		}
		return fn(v)
	}
}

func intParam(name string, def int, fn func(int) (editor.CommandWithProgress, error)) func(Params) (editor.CommandWithProgress, error) {
	return func(p Params) (editor.CommandWithProgress, error) {
		v, err := p.Int(name, def)
		if err != nil {
			return nil, err
		}
		return fn(v)
	}
}

func init() {
	register(&Operation{
		Name:        "crop",
		Description: "Keep only a rectangular region of the image",
		Params:      regionParams,
		build: func(p Params) (editor.CommandWithProgress, error) {
			r, err := p.Rect()
			if err != nil {
				return nil, err
			}
			return Crop(r)
		},
	})
	register(&Operation{
		Name:        "resize",
		Description: "Scale the image. Set width or height to 0 to keep the aspect ratio",
		Params: []Param{
			{Name: "width", Type: "integer", Description: "Target width in pixels", Default: 0},
			{Name: "height", Type: "integer", Description: "Target height in pixels", Default: 0},
			{Name: "filter", Type: "string", Description: "nearest, box, linear, catmullrom or lanczos", Default: "lanczos"},
		},
		build: func(p Params) (editor.CommandWithProgress, error) {
			w, err := p.Int("width", 0)
			if err != nil {
				return nil, err
			}
			h, err := p.Int("height", 0)
			if err != nil {
				return nil, err
			}
			f, err := p.String("filter", "lanczos")
			if err != nil {
				return nil, err
			}
			return Resize(w, h, f)
		},
	})
	register(&Operation{
		Name:        "rotate",
		Description: "Rotate counter-clockwise by 90, 180 or 270 degrees",
		Params:      []Param{{Name: "degrees", Type: "integer", Description: "Rotation angle", Required: true}},
		build:       intParam("degrees", 0, Rotate),
	})
	register(&Operation{
		Name:        "flip_horizontal",
		Description: "Mirror the image left to right",
		build:       noParams(FlipHorizontal),
	})
	register(&Operation{
		Name:        "flip_vertical",
		Description: "Mirror the image top to bottom",
		build:       noParams(FlipVertical),
	})
	register(&Operation{
		Name:        "brightness",
		Description: "Adjust brightness by a percentage (-100 to 100)",
		Params:      []Param{{Name: "percent", Type: "number", Description: "Change in percent", Required: true}},
		build:       floatParam("percent", 0, Brightness),
	})
	register(&Operation{
		Name:        "contrast",
		Description: "Adjust contrast by a percentage (-100 to 100)",
		Params:      []Param{{Name: "percent", Type: "number", Description: "Change in percent", Required: true}},
		build:       floatParam("percent", 0, Contrast),
	})
	register(&Operation{
		Name:        "gamma",
		Description: "Apply gamma correction. Values above 1 brighten",
		Params:      []Param{{Name: "gamma", Type: "number", Description: "Gamma value", Default: 1.0}},
		build:       floatParam("gamma", 1, Gamma),
	})
	register(&Operation{
		Name:        "saturation",
		Description: "Adjust saturation by a percentage (-100 to 100)",
		Params:      []Param{{Name: "percent", Type: "number", Description: "Change in percent", Required: true}},
		build:       floatParam("percent", 0, Saturation),
	})
	register(&Operation{
		Name:        "hue",
		Description: "Rotate the hue by a number of degrees",
		Params:      []Param{{Name: "degrees", Type: "integer", Description: "Hue shift", Required: true}},
		build:       intParam("degrees", 0, Hue),
	})
	register(&Operation{
		Name:        "exposure",
		Description: "Scale colors by 2^stops (reports progress)",
		Params:      []Param{{Name: "stops", Type: "number", Description: "Exposure change in stops (-10 to 10)", Required: true}},
		build:       floatParam("stops", 0, Exposure),
	})
	register(&Operation{
		Name:        "invert",
		Description: "Invert all color channels (reports progress)",
		build:       noParams(Invert),
	})
	register(&Operation{
		Name:        "grayscale",
		Description: "Convert to grayscale",
		build:       noParams(Grayscale),
	})
	register(&Operation{
		Name:        "blur",
		Description: "Gaussian blur",
		Params:      []Param{{Name: "sigma", Type: "number", Description: "Blur radius", Default: 2.0}},
		build:       floatParam("sigma", 2, Blur),
	})
	register(&Operation{
		Name:        "sharpen",
		Description: "Unsharp mask",
		Params:      []Param{{Name: "sigma", Type: "number", Description: "Sharpen radius", Default: 1.0}},
		build:       floatParam("sigma", 1, Sharpen),
	})
	register(&Operation{
		Name:        "median",
		Description: "Median filter for noise removal",
		Params:      []Param{{Name: "radius", Type: "number", Description: "Neighborhood radius (1 to 32)", Default: 2.0}},
		build:       floatParam("radius", 2, Median),
	})
	register(&Operation{
		Name:        "sobel",
		Description: "Sobel edge filter",
		build:       noParams(Sobel),
	})
	register(&Operation{
		Name:        "emboss",
		Description: "Emboss filter",
		build:       noParams(Emboss),
	})
	register(&Operation{
		Name:        "threshold",
		Description: "Black and white by luminance level",
		Params:      []Param{{Name: "level", Type: "integer", Description: "Threshold (0-255)", Default: 128}},
		build:       intParam("level", 128, Threshold),
	})
	register(&Operation{
		Name:        "edge_detect",
		Description: "Canny edge detection: white edges on black (reports progress)",
		Params: []Param{
			{Name: "threshold_low", Type: "integer", Description: "Low hysteresis threshold (0-255)", Default: 50},
			{Name: "threshold_high", Type: "integer", Description: "High hysteresis threshold (0-255)", Default: 150},
		},
		build: func(p Params) (editor.CommandWithProgress, error) {
			lo, err := p.Int("threshold_low", 50)
			if err != nil {
				return nil, err
			}
			hi, err := p.Int("threshold_high", 150)
			if err != nil {
				return nil, err
			}
			return EdgeDetect(lo, hi)
		},
	})
	register(&Operation{
		Name:        "fill_region",
		Description: "Paint a rectangle with a solid color",
		Params:      withRegion(Param{Name: "color", Type: "string", Description: "Hex color #RRGGBB or #RRGGBBAA", Default: "#000000"}),
		build: func(p Params) (editor.CommandWithProgress, error) {
			r, err := p.Rect()
			if err != nil {
				return nil, err
			}
			hex, err := p.String("color", "#000000")
			if err != nil {
				return nil, err
			}
			c, err := imgutil.ParseHexColor(hex)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
			}
			return FillRegion(r, c)
		},
	})
	register(&Operation{
		Name:        "invert_region",
		Description: "Invert the colors inside a rectangle",
		Params:      regionParams,
		build: func(p Params) (editor.CommandWithProgress, error) {
			r, err := p.Rect()
			if err != nil {
				return nil, err
			}
			return InvertRegion(r)
		},
	})
	register(&Operation{
		Name:        "blur_region",
		Description: "Blur the inside of a rectangle",
		Params:      withRegion(Param{Name: "sigma", Type: "number", Description: "Blur radius", Default: 4.0}),
		build: func(p Params) (editor.CommandWithProgress, error) {
			r, err := p.Rect()
			if err != nil {
				return nil, err
			}
			sigma, err := p.Float("sigma", 4)
			if err != nil {
				return nil, err
			}
			return BlurRegion(r, sigma)
		},
	})
	register(&Operation{
		Name:        "grid_overlay",
		Description: "Draw a coordinate grid over the image",
		Params: []Param{
			{Name: "spacing", Type: "integer", Description: "Pixels between grid lines", Default: 50},
			{Name: "show_coordinates", Type: "boolean", Description: "Label intersections", Default: true},
			{Name: "color", Type: "string", Description: "Line color #RRGGBB or #RRGGBBAA", Default: DefaultGridColor},
		},
		build: func(p Params) (editor.CommandWithProgress, error) {
			spacing, err := p.Int("spacing", 50)
			if err != nil {
				return nil, err
			}
			show, err := p.Bool("show_coordinates", true)
			if err != nil {
				return nil, err
			}
			hex, err := p.String("color", DefaultGridColor)
			if err != nil {
				return nil, err
			}
			return GridOverlay(spacing, show, hex)
		},
	})
}
