// Package configtext reads and writes a simple keyed text configuration
// grammar: a `begin`/`end` bracketed block of `key value` lines, one
// value per line, decoding straight into a surf.Config.
//
// Unrecognized enum names decode to a fixed default per enum: Maxima for
// extremaType, Blocks for levelSelectionMethod, Absolute for
// locationSelectionMode, and the zero value (NoBoundary, Auto, Ignore)
// for the boundary, window-width-unit and orientation-mode keys; unrecognized
// keys are a decode error, since a typo'd key silently doing nothing is
// worse than a loud one.
package configtext

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/naisuuuu/surf"
	"github.com/naisuuuu/surf/descriptor"
	"github.com/naisuuuu/surf/extremum"
	"github.com/naisuuuu/surf/hessian"
	"github.com/naisuuuu/surf/integral"
	"github.com/naisuuuu/surf/location"
	"github.com/naisuuuu/surf/orientation"
)

// Decode reads the begin/end key-value grammar from r, starting from
// surf.DefaultConfig and overriding only the keys present in the
// stream.
func Decode(r io.Reader) (surf.Config, error) {
	cfg := surf.DefaultConfig()

	sc := bufio.NewScanner(r)
	inBlock := false
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch line {
		case "begin":
			inBlock = true
			continue
		case "end":
			inBlock = false
			continue
		}
		if !inBlock {
			return cfg, fmt.Errorf("configtext: line %d: %q outside begin/end block", lineNo, line)
		}

		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return cfg, fmt.Errorf("configtext: line %d: malformed entry %q, want \"key value\"", lineNo, line)
		}
		value = strings.TrimSpace(value)

		setter, ok := setters[key]
		if !ok {
			return cfg, fmt.Errorf("configtext: line %d: unknown key %q", lineNo, key)
		}
		if err := setter(&cfg, value); err != nil {
			return cfg, fmt.Errorf("configtext: line %d: key %q: %w", lineNo, key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return cfg, fmt.Errorf("configtext: %w", err)
	}
	return cfg, nil
}

// Encode writes cfg back out in the same grammar Decode reads, one
// key per line, so a round trip through Decode(Encode(cfg)) reproduces
// every field this package knows how to serialize.
func Encode(w io.Writer, cfg surf.Config) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "begin")
	for _, key := range orderedKeys {
		fmt.Fprintf(bw, "%s %s\n", key, getters[key](cfg))
	}
	fmt.Fprintln(bw, "end")
	return bw.Flush()
}

type setterFunc func(*surf.Config, string) error
type getterFunc func(surf.Config) string

var setters map[string]setterFunc
var getters map[string]getterFunc
var orderedKeys []string

func register(key string, set setterFunc, get getterFunc) {
	setters[key] = set
	getters[key] = get
	orderedKeys = append(orderedKeys, key)
}

func init() {
	setters = make(map[string]setterFunc)
	getters = make(map[string]getterFunc)

	register("numberOfLevels",
		func(c *surf.Config, v string) error { return setInt(&c.Hessian.NumberOfLevels, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Hessian.NumberOfLevels) })
	register("initialKernelSize",
		func(c *surf.Config, v string) error { return setInt(&c.Hessian.InitialKernelSize, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Hessian.InitialKernelSize) })
	register("initialKernelStep",
		func(c *surf.Config, v string) error { return setInt(&c.Hessian.InitialKernelStep, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Hessian.InitialKernelStep) })
	register("levelGroupSize",
		func(c *surf.Config, v string) error { return setInt(&c.Hessian.LevelGroupSize, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Hessian.LevelGroupSize) })
	register("levelSelectionMethod",
		func(c *surf.Config, v string) error {
			c.Hessian.LevelSelectionMethod = decodeLevelSelectionMethod(v)
			return nil
		},
		func(c surf.Config) string { return encodeLevelSelectionMethod(c.Hessian.LevelSelectionMethod) })
	register("normPower",
		func(c *surf.Config, v string) error { return setFloat(&c.Hessian.NormPower, v) },
		func(c surf.Config) string { return formatFloat(c.Hessian.NormPower) })
	register("subsampleLevels",
		func(c *surf.Config, v string) error { return setBool(&c.Hessian.SubsampleLevels, v) },
		func(c surf.Config) string { return formatBool(c.Hessian.SubsampleLevels) })
	register("initialSamplingStep",
		func(c *surf.Config, v string) error { return setInt(&c.Hessian.InitialSamplingStep, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Hessian.InitialSamplingStep) })
	register("sourceIsInteger",
		func(c *surf.Config, v string) error { return setBool(&c.Hessian.SourceIsInteger, v) },
		func(c surf.Config) string { return formatBool(c.Hessian.SourceIsInteger) })
	register("boundary",
		func(c *surf.Config, v string) error { c.Hessian.Boundary = decodeBoundary(v); return nil },
		func(c surf.Config) string { return encodeBoundary(c.Hessian.Boundary) })

	register("extremaType",
		func(c *surf.Config, v string) error { c.Polarity = decodePolarity(v); return nil },
		func(c surf.Config) string { return encodePolarity(c.Polarity) })
	register("thresholdMax",
		func(c *surf.Config, v string) error { return setFloat(&c.Thresholds.Max, v) },
		func(c surf.Config) string { return formatFloat(c.Thresholds.Max) })
	register("thresholdMin",
		func(c *surf.Config, v string) error { return setFloat(&c.Thresholds.Min, v) },
		func(c surf.Config) string { return formatFloat(c.Thresholds.Min) })

	register("locationSelectionMode",
		func(c *surf.Config, v string) error { c.Location.Mode = decodeLocationMode(v); return nil },
		func(c surf.Config) string { return encodeLocationMode(c.Location.Mode) })
	register("locationThreshold",
		func(c *surf.Config, v string) error { return setFloat(&c.Location.Threshold, v) },
		func(c surf.Config) string { return formatFloat(c.Location.Threshold) })

	register("orientationNeighborhoodFactor",
		func(c *surf.Config, v string) error { return setFloat(&c.Orientation.NeighborhoodFactor, v) },
		func(c surf.Config) string { return formatFloat(c.Orientation.NeighborhoodFactor) })
	register("orientationSamplingStepFactor",
		func(c *surf.Config, v string) error { return setFloat(&c.Orientation.SamplingStepFactor, v) },
		func(c surf.Config) string { return formatFloat(c.Orientation.SamplingStepFactor) })
	register("orientationWaveletSizeFactor",
		func(c *surf.Config, v string) error { return setFloat(&c.Orientation.WaveletSizeFactor, v) },
		func(c surf.Config) string { return formatFloat(c.Orientation.WaveletSizeFactor) })
	register("orientationGaussianFactor",
		func(c *surf.Config, v string) error { return setFloat(&c.Orientation.GaussianFactor, v) },
		func(c surf.Config) string { return formatFloat(c.Orientation.GaussianFactor) })
	register("orientationWindowWidth",
		func(c *surf.Config, v string) error { return setFloat(&c.Orientation.WindowWidth, v) },
		func(c surf.Config) string { return formatFloat(c.Orientation.WindowWidth) })
	register("orientationWindowWidthUnit",
		func(c *surf.Config, v string) error {
			c.Orientation.WindowWidthUnit = decodeWindowWidthUnit(v)
			return nil
		},
		func(c surf.Config) string { return encodeWindowWidthUnit(c.Orientation.WindowWidthUnit) })
	register("orientationNumberOfWindows",
		func(c *surf.Config, v string) error { return setInt(&c.Orientation.NumberOfWindows, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Orientation.NumberOfWindows) })
	register("orientationBoundary",
		func(c *surf.Config, v string) error { c.Orientation.Boundary = decodeBoundary(v); return nil },
		func(c surf.Config) string { return encodeBoundary(c.Orientation.Boundary) })

	register("numberOfSubregions",
		func(c *surf.Config, v string) error { return setInt(&c.Descriptor.NumberOfSubregions, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Descriptor.NumberOfSubregions) })
	register("subregionSamples",
		func(c *surf.Config, v string) error { return setInt(&c.Descriptor.SubregionSamples, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Descriptor.SubregionSamples) })
	register("descriptorWaveletSize",
		func(c *surf.Config, v string) error { return setFloat(&c.Descriptor.WaveletSize, v) },
		func(c surf.Config) string { return formatFloat(c.Descriptor.WaveletSize) })
	register("gaussianWeight",
		func(c *surf.Config, v string) error { return setFloat(&c.Descriptor.GaussianWeight, v) },
		func(c surf.Config) string { return formatFloat(c.Descriptor.GaussianWeight) })
	register("signSplit",
		func(c *surf.Config, v string) error { return setBool(&c.Descriptor.SignSplit, v) },
		func(c surf.Config) string { return formatBool(c.Descriptor.SignSplit) })
	register("normalize",
		func(c *surf.Config, v string) error { return setBool(&c.Descriptor.Normalize, v) },
		func(c surf.Config) string { return formatBool(c.Descriptor.Normalize) })
	register("clip",
		func(c *surf.Config, v string) error { return setBool(&c.Descriptor.Clip, v) },
		func(c surf.Config) string { return formatBool(c.Descriptor.Clip) })
	register("clippingValue",
		func(c *surf.Config, v string) error { return setFloat(&c.Descriptor.ClippingValue, v) },
		func(c surf.Config) string { return formatFloat(c.Descriptor.ClippingValue) })
	register("orientationMode",
		func(c *surf.Config, v string) error { c.Descriptor.OrientationMode = decodeOrientationMode(v); return nil },
		func(c surf.Config) string { return encodeOrientationMode(c.Descriptor.OrientationMode) })
	register("orientationClusters",
		func(c *surf.Config, v string) error { return setInt(&c.Descriptor.OrientationClusters, v) },
		func(c surf.Config) string { return strconv.Itoa(c.Descriptor.OrientationClusters) })
	register("descriptorBoundary",
		func(c *surf.Config, v string) error { c.Descriptor.Boundary = decodeBoundary(v); return nil },
		func(c surf.Config) string { return encodeBoundary(c.Descriptor.Boundary) })
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", v)
	}
	*dst = f
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("not a boolean: %q", v)
	}
	*dst = b
	return nil
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
func formatBool(b bool) string     { return strconv.FormatBool(b) }

func decodeLevelSelectionMethod(v string) hessian.LevelSelectionMethod {
	if v == "Exponential" {
		return hessian.Exponential
	}
	return hessian.Blocks
}

func encodeLevelSelectionMethod(m hessian.LevelSelectionMethod) string {
	if m == hessian.Exponential {
		return "Exponential"
	}
	return "Blocks"
}

func decodeBoundary(v string) integral.BoundaryPolicy {
	switch v {
	case "Zero":
		return integral.Zero
	case "Constant":
		return integral.Constant
	case "Periodic":
		return integral.Periodic
	case "Mirror":
		return integral.Mirror
	default:
		return integral.NoBoundary
	}
}

func encodeBoundary(b integral.BoundaryPolicy) string {
	switch b {
	case integral.Zero:
		return "Zero"
	case integral.Constant:
		return "Constant"
	case integral.Periodic:
		return "Periodic"
	case integral.Mirror:
		return "Mirror"
	default:
		return "NoBoundary"
	}
}

func decodePolarity(v string) extremum.Polarity {
	switch v {
	case "Minima":
		return extremum.Minima
	case "Both":
		return extremum.Both
	default:
		return extremum.Maxima
	}
}

func encodePolarity(p extremum.Polarity) string {
	switch p {
	case extremum.Minima:
		return "Minima"
	case extremum.Both:
		return "Both"
	default:
		return "Maxima"
	}
}

func decodeLocationMode(v string) location.Mode {
	switch v {
	case "Relative":
		return location.Relative
	case "Conspicuous":
		return location.Conspicuous
	case "Number":
		return location.Number
	case "All":
		return location.All
	default:
		return location.Absolute
	}
}

func encodeLocationMode(m location.Mode) string {
	switch m {
	case location.Relative:
		return "Relative"
	case location.Conspicuous:
		return "Conspicuous"
	case location.Number:
		return "Number"
	case location.All:
		return "All"
	default:
		return "Absolute"
	}
}

func decodeWindowWidthUnit(v string) orientation.WindowWidthUnit {
	switch v {
	case "Radians":
		return orientation.Radians
	case "Degrees":
		return orientation.Degrees
	default:
		return orientation.Auto
	}
}

func encodeWindowWidthUnit(u orientation.WindowWidthUnit) string {
	switch u {
	case orientation.Radians:
		return "Radians"
	case orientation.Degrees:
		return "Degrees"
	default:
		return "Auto"
	}
}

func decodeOrientationMode(v string) descriptor.OrientationMode {
	switch v {
	case "Approximate":
		return descriptor.Approximate
	case "Cluster":
		return descriptor.Cluster
	default:
		return descriptor.Ignore
	}
}

func encodeOrientationMode(m descriptor.OrientationMode) string {
	switch m {
	case descriptor.Approximate:
		return "Approximate"
	case descriptor.Cluster:
		return "Cluster"
	default:
		return "Ignore"
	}
}
