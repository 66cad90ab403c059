package waste

import (
	"fmt"
	"image/color"
)

// Label and class-index tables are package-private and only exposed through
// lookup functions so nothing outside this file can mutate them.

var labelCategories = map[string]Category{
	"person":         NotWaste,
	"bird":           NotWaste,
	"cat":            NotWaste,
	"dog":            NotWaste,
	"horse":          NotWaste,
	"sheep":          NotWaste,
	"cow":            NotWaste,
	"elephant":       NotWaste,
	"bear":           NotWaste,
	"zebra":          NotWaste,
	"giraffe":        NotWaste,
	"bicycle":        Hazardous,
	"car":            Hazardous,
	"motorcycle":     Hazardous,
	"airplane":       Hazardous,
	"bus":            Hazardous,
	"train":          Hazardous,
	"truck":          Hazardous,
	"boat":           Hazardous,
	"traffic light":  Hazardous,
	"fire hydrant":   Recyclable,
	"stop sign":      Recyclable,
	"parking meter":  Hazardous,
	"bench":          Recyclable,
	"backpack":       Recyclable,
	"umbrella":       Recyclable,
	"handbag":        Recyclable,
	"tie":            Recyclable,
	"suitcase":       Recyclable,
	"frisbee":        Recyclable,
	"skis":           Recyclable,
	"snowboard":      Recyclable,
	"sports ball":    Recyclable,
	"kite":           Recyclable,
	"baseball bat":   Recyclable,
	"baseball glove": Recyclable,
	"skateboard":     Recyclable,
	"surfboard":      Recyclable,
	"tennis racket":  Recyclable,
	"bottle":         Recyclable,
	"wine glass":     Recyclable,
	"cup":            Recyclable,
	"bowl":           Recyclable,
	"vase":           Recyclable,
	"fork":           Recyclable,
	"knife":          Recyclable,
	"spoon":          Recyclable,
	"banana":         Biodegradable,
	"apple":          Biodegradable,
	"sandwich":       Biodegradable,
	"orange":         Biodegradable,
	"broccoli":       Biodegradable,
	"carrot":         Biodegradable,
	"hot dog":        Biodegradable,
	"pizza":          Biodegradable,
	"donut":          Biodegradable,
	"cake":           Biodegradable,
	"chair":          Recyclable,
	"couch":          Recyclable,
	"potted plant":   Biodegradable,
	"bed":            Recyclable,
	"dining table":   Recyclable,
	"toilet":         Recyclable,
	"tv":             Hazardous,
	"laptop":         Hazardous,
	"mouse":          Hazardous,
	"remote":         Hazardous,
	"keyboard":       Hazardous,
	"cell phone":     Hazardous,
	"microwave":      Hazardous,
	"oven":           Hazardous,
	"toaster":        Hazardous,
	"refrigerator":   Hazardous,
	"book":           Recyclable,
	"clock":          Hazardous,
	"scissors":       Recyclable,
	"teddy bear":     Recyclable,
	"hair drier":     Hazardous,
	"toothbrush":     Recyclable,
	"sink":           Recyclable,
}

var classCategories = [...]Category{
	Hazardous,
	Recyclable,
	Biodegradable,
	NonBiodegradable,
}

var (
	red    = color.NRGBA{R: 255, A: 255}
	green  = color.NRGBA{G: 128, A: 255}
	blue   = color.NRGBA{B: 255, A: 255}
	orange = color.NRGBA{R: 255, G: 165, A: 255}
	gray   = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	white  = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

var categoryColors = map[Category]color.NRGBA{
	Hazardous:        red,
	Recyclable:       green,
	Biodegradable:    blue,
	NonBiodegradable: orange,
}

var detectionColors = map[Category]color.NRGBA{
	Recyclable:    green,
	Biodegradable: blue,
	Hazardous:     red,
	Unknown:       gray,
	NotWaste:      orange,
}

// LabelCategory maps a detector label to its category, Unknown when absent.
func LabelCategory(label string) Category {
	if c, ok := labelCategories[label]; ok {
		return c
	}
	return Unknown
}

// ClassCategory maps a classifier output index to its category, Unknown when
// the index is outside the table.
func ClassCategory(index int) Category {
	if index < 0 || index >= len(classCategories) {
		return Unknown
	}
	return classCategories[index]
}

// ClassName is the probability-map key for a classifier index.
func ClassName(index int) string {
	if c := ClassCategory(index); c != Unknown {
		return string(c)
	}
	return fmt.Sprintf("class_%d", index)
}

func Classes() []Category {
	out := make([]Category, len(classCategories))
	copy(out, classCategories[:])
	return out
}

func Labels() []string {
	out := make([]string, 0, len(labelCategories))
	for label := range labelCategories {
		out = append(out, label)
	}
	return out
}

// CategoryColor is the banner color used for classifier results.
func CategoryColor(c Category) color.NRGBA {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return white
}

// DetectionColor is the box color used for detector results.
func DetectionColor(c Category) color.NRGBA {
	if col, ok := detectionColors[c]; ok {
		return col
	}
	return gray
}
