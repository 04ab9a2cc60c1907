package dataset

import "fmt"

// View is an ordered selection of windows, addressed by 0..Len()-1.
type View struct {
	data      *Data
	selection []int
}

// Len is the number of windows in the view.
func (v *View) Len() int {
	return len(v.selection)
}

// Start returns the offset into the sample series of window i.
func (v *View) Start(i int) (int, error) {
	if i < 0 || i >= len(v.selection) {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(v.selection))
	}
	return v.selection[i], nil
}

// Get assembles the feature vector and label of window i.
//
// The vector starts with the global median, MAD and mean followed by the
// same three statistics over the window. Then, for every sample x in the
// window, it holds x and its deviation from the global mean, median and MAD
// and from the window's mean, median and MAD. The label is the one-hot row
// at the window's center.
func (v *View) Get(i int) (features []float64, label []float64, err error) {
	start, err := v.Start(i)
	if err != nil {
		return nil, nil, err
	}
	d := v.data
	window := d.samples[start : start+d.sequenceLength]
	g := d.global
	local := summarize(window)

	features = make([]float64, 0, d.FeatureLength())
	features = append(features, g.median, g.mad, g.mean, local.median, local.mad, local.mean)
	for _, x := range window {
		features = append(features,
			x,
			x-g.mean,
			x-g.median,
			x-g.mad,
			x-local.mean,
			x-local.median,
			x-local.mad,
		)
	}

	row := d.labels.RawRowView(start + d.sequenceLength/2)
	label = make([]float64, len(row))
	copy(label, row)
	return features, label, nil
}
