package corpus

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// OneHot expands integer labels into an [len(labels), numberClasses] matrix
// with a single 1 per row.
func OneHot(labels []int, numberClasses int) (*mat.Dense, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels to encode")
	}
	if numberClasses < 1 {
		return nil, fmt.Errorf("number of classes must be positive, got %d", numberClasses)
	}
	m := mat.NewDense(len(labels), numberClasses, nil)
	for i, l := range labels {
		if l < 0 || l >= numberClasses {
			return nil, fmt.Errorf("label %d at %d outside [0, %d)", l, i, numberClasses)
		}
		m.Set(i, l, 1)
	}
	return m, nil
}
