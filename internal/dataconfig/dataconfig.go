// Package dataconfig holds the per-dataset training hyperparameters the
// original program keyed off a dataset name (each of its
// src/models/{iris,wine,sonar,digits,mnist}.py modules exposed its own
// get_params()). Peripheral per spec §1 ("per-dataset hyperparameter
// dictionaries ... are peripheral"); kept as a single lookup table in the
// style of internal/model.SensorCatalog rather than one file per dataset.
package dataconfig

import "fmt"

// Dataset names the lookup key, mirroring the original program's module
// names.
type Dataset string

const (
	Iris   Dataset = "iris"
	Wine   Dataset = "wine"
	Sonar  Dataset = "sonar"
	Digits Dataset = "digits"
	MNIST  Dataset = "mnist"
)

// Params is the set of hyperparameters needed to build and train a network
// for one dataset.
type Params struct {
	NLayers    int
	NNeurons   int
	NEpochs    int
	NClasses   int
	NFeatures  int
	BatchSize  int
	LearnRate  float64
}

// Catalog maps each known dataset to its training hyperparameters.
var Catalog = map[Dataset]Params{
	Iris:   {NLayers: 2, NNeurons: 16, NEpochs: 60, NClasses: 3, NFeatures: 4, BatchSize: 8, LearnRate: 1e-3},
	Wine:   {NLayers: 2, NNeurons: 24, NEpochs: 80, NClasses: 3, NFeatures: 13, BatchSize: 8, LearnRate: 1e-3},
	Sonar:  {NLayers: 2, NNeurons: 32, NEpochs: 100, NClasses: 2, NFeatures: 60, BatchSize: 16, LearnRate: 1e-3},
	Digits: {NLayers: 3, NNeurons: 64, NEpochs: 60, NClasses: 10, NFeatures: 64, BatchSize: 32, LearnRate: 1e-3},
	MNIST:  {NLayers: 3, NNeurons: 128, NEpochs: 30, NClasses: 10, NFeatures: 784, BatchSize: 64, LearnRate: 1e-3},
}

// Lookup returns the hyperparameters for name, or an error if name is not a
// known dataset.
func Lookup(name string) (Params, error) {
	p, ok := Catalog[Dataset(name)]
	if !ok {
		return Params{}, fmt.Errorf("dataconfig: unknown dataset %q", name)
	}
	return p, nil
}
