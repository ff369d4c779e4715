package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/phishsense/phishsense/internal/feature"
	"github.com/phishsense/phishsense/internal/model"
	"github.com/phishsense/phishsense/internal/platform/errs"
)

// artifact is the on-disk model format: feature names in training order,
// one weight per feature, plus bias and decision threshold.
type artifact struct {
	Features  []string  `json:"features"`
	Weights   []float64 `json:"weights"`
	Bias      float64   `json:"bias"`
	Threshold float64   `json:"threshold"`
}

// LinearModel scores a vector with a fixed weight per slot. It is immutable
// after Load, so Classify is safe for concurrent use without locking.
type LinearModel struct {
	weights   [feature.NumSlots]float64
	bias      float64
	threshold float64
}

// Load reads and validates a model artifact. The declared feature list must
// match the extractor's contract exactly, in order; any mismatch in slot
// count, name, or order is a fatal configuration error, never silently
// truncated or padded.
func Load(path string) (*LinearModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classifier: read model artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, &errs.AppError{
			Kind:    errs.ContractMismatch,
			Message: "model artifact is not valid JSON",
			Cause:   err,
		}
	}

	if len(art.Features) != feature.NumSlots || len(art.Weights) != feature.NumSlots {
		return nil, &errs.AppError{
			Kind: errs.ContractMismatch,
			Message: fmt.Sprintf("model artifact declares %d features and %d weights, want %d",
				len(art.Features), len(art.Weights), feature.NumSlots),
		}
	}
	for i, name := range art.Features {
		if name != feature.Names[i] {
			return nil, &errs.AppError{
				Kind: errs.ContractMismatch,
				Message: fmt.Sprintf("model artifact feature %d is %q, want %q",
					i, name, feature.Names[i]),
			}
		}
	}

	m := &LinearModel{bias: art.Bias, threshold: art.Threshold}
	copy(m.weights[:], art.Weights)
	return m, nil
}

// Classify scores the vector and returns the label with its confidence.
// Confidence is the logistic probability of the chosen label.
func (m *LinearModel) Classify(v feature.Vector) (Result, error) {
	score := m.bias
	for i, w := range m.weights {
		score += w * float64(v[i])
	}

	pLegit := 1 / (1 + math.Exp(-(score - m.threshold)))
	res := Result{Vector: v}
	if pLegit >= 0.5 {
		res.Label = model.LabelLegitimate
		res.Confidence = pLegit
	} else {
		res.Label = model.LabelPhishing
		res.Confidence = 1 - pLegit
	}
	return res, nil
}
