// Package classifier wraps the pre-trained model as an opaque inference
// function over feature vectors. The model is loaded once at startup and
// shared read-only across all extraction tasks.
package classifier

import "github.com/phishsense/phishsense/internal/feature"

// Result is the verdict for one feature vector.
type Result struct {
	Label      string  // model.LabelLegitimate or model.LabelPhishing
	Confidence float64 // in [0.5, 1), confidence in the chosen label
	Vector     feature.Vector
}

// Model is the inference contract. Implementations must be safe for
// concurrent use; the batch coordinator calls Classify from many workers.
// An implementation that is not, must be wrapped with batch's serialized
// inference option.
type Model interface {
	Classify(v feature.Vector) (Result, error)
}
