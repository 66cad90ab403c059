package waste

type Category string

const (
	Hazardous        Category = "hazardous"
	Recyclable       Category = "recyclable"
	Biodegradable    Category = "biodegradable"
	NonBiodegradable Category = "nonbiodegradable"
	NotWaste         Category = "not waste"
	Unknown          Category = "unknown"
)

type BoundingBox struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Detection is a single labelled result from either model. BoundingBox is set
// only by the generic detector; AllProbabilities only by the classifier.
type Detection struct {
	Item             string             `json:"item"`
	Type             Category           `json:"type"`
	Confidence       float64            `json:"confidence"`
	BoundingBox      *BoundingBox       `json:"bbox,omitempty"`
	AllProbabilities map[string]float64 `json:"all_probabilities,omitempty"`
}

type ModelResult struct {
	Detections      []Detection          `json:"detections"`
	Percentages     map[Category]float64 `json:"percentages"`
	TotalDetections int                  `json:"total_detections"`
	Image           string               `json:"image,omitempty"`
	ModelFormat     string               `json:"model_format,omitempty"`
	Note            string               `json:"note,omitempty"`
	Error           string               `json:"error,omitempty"`
	Solution        string               `json:"solution,omitempty"`
}

type IdentifyResult struct {
	CustomModel          ModelResult `json:"custom_model"`
	DefaultModel         ModelResult `json:"default_model"`
	SavedFile            string      `json:"saved_file"`
	PreprocessingApplied bool        `json:"preprocessing_applied"`
}
