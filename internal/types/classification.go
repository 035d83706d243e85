//nolint:revive // types is a standard Go package name pattern
package types

// Sentinel labels
const (
	// LabelUnknown is reported when a classifier returns no distribution.
	LabelUnknown = "unknown"
	// LabelGood is the stage-2 "no defect" class.
	LabelGood = "good"
)

// LabelScore is one label and its probability in [0,1].
type LabelScore struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Distribution is a classifier output in the order the model reported labels.
// Order matters: argmax ties resolve to the earliest label.
type Distribution []LabelScore

// Top returns the highest scoring label. An empty distribution yields
// LabelUnknown with zero confidence and ok=false.
func (d Distribution) Top() (LabelScore, bool) {
	if len(d) == 0 {
		return LabelScore{Label: LabelUnknown}, false
	}
	best := d[0]
	for _, s := range d[1:] {
		if s.Confidence > best.Confidence {
			best = s
		}
	}
	return best, true
}

// Scores returns the distribution as a label -> confidence map.
func (d Distribution) Scores() map[string]float64 {
	m := make(map[string]float64, len(d))
	for _, s := range d {
		m[s.Label] = s.Confidence
	}
	return m
}

// CascadeResult holds the outputs of the two-stage classification.
type CascadeResult struct {
	// TargetLabel is the stage-1 label the cascade admitted to stage 2.
	TargetLabel string
	IsTarget    bool
	Stage1      Distribution
	Stage1Top   LabelScore
	// Stage2 and Stage2Top are nil when stage 1 rejected the image.
	Stage2    Distribution
	Stage2Top *LabelScore
	Defects   []string
}

// Stage2Ran reports whether the condition classifier was invoked.
func (r *CascadeResult) Stage2Ran() bool {
	return r.Stage2Top != nil
}

// RawScores returns the stage-2 scores when stage 2 produced any, otherwise
// stage-1.
func (r *CascadeResult) RawScores() map[string]float64 {
	if r.Stage2Ran() && len(r.Stage2) > 0 {
		return r.Stage2.Scores()
	}
	return r.Stage1.Scores()
}
