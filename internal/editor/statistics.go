package editor

import (
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/ironsheep/image-edit-mcp/internal/async"
	"github.com/ironsheep/image-edit-mcp/internal/imaging"
)

const (
	NumBins  = 256
	NumTicks = 8

	// histograms are scaled so this bin, counted from the largest, is 1
	normalizeRank = 10

	minLogValue = 1e-3
)

// AxisScale selects how values map to histogram bins.
type AxisScale int

const (
	LinearAxis AxisScale = iota
	SRGBAxis
	LogAxis
	numAxisScales
)

func (a AxisScale) String() string {
	switch a {
	case LinearAxis:
		return "linear"
	case SRGBAxis:
		return "srgb"
	case LogAxis:
		return "log"
	default:
		return fmt.Sprintf("AxisScale(%d)", int(a))
	}
}

// ParseAxisScale is the inverse of AxisScale.String.
func ParseAxisScale(s string) (AxisScale, error) {
	for a := LinearAxis; a < numAxisScales; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return LinearAxis, fmt.Errorf("unknown axis scale %q", s)
}

// Histogram holds per-channel bin values and the x-axis ticks of one scale.
type Histogram struct {
	Values     [NumBins][3]float64 `json:"values"`
	Ticks      []float64           `json:"ticks"`
	TickLabels []string            `json:"tick_labels"`
}

// Statistics summarizes the color channels of an image at an exposure.
type Statistics struct {
	Exposure   float64                  `json:"exposure"`
	Minimum    float64                  `json:"minimum"`
	Maximum    float64                  `json:"maximum"`
	Average    float64                  `json:"average"`
	Histograms [numAxisScales]Histogram `json:"-"`
}

// Histogram returns the histogram for axis.
func (s *Statistics) Histogram(axis AxisScale) *Histogram {
	if axis < 0 || axis >= numAxisScales {
		return nil
	}
	return &s.Histograms[axis]
}

// ComputeStatistics walks img once, scaling values by 2^exposure before
// binning. Minimum and maximum are taken before scaling.
func ComputeStatistics(img *image.NRGBA, exposure float64, p *async.Progress) (*Statistics, error) {
	if img == nil {
		return nil, imaging.ErrNullImage
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("cannot compute statistics of an empty image")
	}
	if p == nil {
		p = &async.Progress{}
	}

	gain := math.Pow(2, exposure)
	d := 1 / float64(w*h)

	s := &Statistics{
		Exposure: exposure,
		Minimum:  math.Inf(1),
		Maximum:  math.Inf(-1),
	}

	p.SetNumSteps(h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			for c := 0; c < 3; c++ {
				raw := float64(row[i+c]) / 255
				s.Minimum = math.Min(s.Minimum, raw)
				s.Maximum = math.Max(s.Maximum, raw)

				v := gain * raw
				s.Average += v
				s.Histograms[LinearAxis].Values[bin(v)][c] += d
				s.Histograms[SRGBAxis].Values[bin(imaging.LinearToSRGB(v))][c] += d
				s.Histograms[LogAxis].Values[bin(normalizedLogScale(v))][c] += d
			}
		}
		p.Step()
	}
	s.Average /= float64(3 * w * h)

	for a := range s.Histograms {
		normalize(&s.Histograms[a])
	}
	addTicks(s, exposure)
	return s, nil
}

func bin(v float64) int {
	i := int(math.Floor(v * NumBins))
	return max(0, min(i, NumBins-1))
}

// normalizedLogScale maps [minLogValue, 1] onto [0, 1] logarithmically.
func normalizedLogScale(v float64) float64 {
	v = math.Max(v, minLogValue)
	return (math.Log(v) - math.Log(minLogValue)) / -math.Log(minLogValue)
}

// normalize divides every value by the normalizeRank-th largest one, or by
// the largest when fewer bins are populated.
func normalize(h *Histogram) {
	vals := make([]float64, 0, NumBins*3)
	for _, b := range h.Values {
		vals = append(vals, b[0], b[1], b[2])
	}
	slices.Sort(vals)

	scale := vals[len(vals)-normalizeRank]
	if scale == 0 {
		scale = vals[len(vals)-1]
	}
	if scale == 0 {
		return
	}
	for i := range h.Values {
		for c := 0; c < 3; c++ {
			h.Values[i][c] /= scale
		}
	}
}

func addTicks(s *Statistics, exposure float64) {
	displayMax := math.Pow(2, -exposure)

	linear := make([]float64, NumTicks+1)
	labels := make([]string, NumTicks+1)
	for i := range linear {
		linear[i] = float64(i) / NumTicks
		labels[i] = fmt.Sprintf("%.3f", displayMax*linear[i])
	}

	srgb := make([]float64, len(linear))
	logs := make([]float64, len(linear))
	for i, v := range linear {
		srgb[i] = imaging.LinearToSRGB(v)
		logs[i] = normalizedLogScale(v)
	}

	s.Histograms[LinearAxis].Ticks = linear
	s.Histograms[SRGBAxis].Ticks = srgb
	s.Histograms[LogAxis].Ticks = logs
	for a := range s.Histograms {
		s.Histograms[a].TickLabels = labels
	}
}
