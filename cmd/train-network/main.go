// train-network trains a dense ReLU/softmax classifier for one of the
// catalogued datasets and writes the resulting weights to JSON, for
// cmd/explain (or any other MILP-encoding consumer) to load afterwards.
//
// Usage:
//
//	train-network -dataset iris -x-csv train_x.csv -y-csv train_y.csv -model-output model/iris.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"explainer/internal/dataconfig"
	"explainer/internal/dataset"
	"explainer/internal/trainnet"
)

func main() {
	datasetName := flag.String("dataset", "iris", "dataset name (see internal/dataconfig.Catalog)")
	xPath := flag.String("x-csv", "", "path to training features CSV (header + numeric rows)")
	yPath := flag.String("y-csv", "", "path to training labels CSV (single column of class indices)")
	modelOutput := flag.String("model-output", "model/network.json", "path to write trained network JSON")
	seed := flag.Uint64("seed", 42, "random seed")
	valFraction := flag.Float64("val-fraction", 0.2, "fraction of rows held out for validation")
	flag.Parse()

	if *xPath == "" || *yPath == "" {
		fmt.Fprintln(os.Stderr, "both -x-csv and -y-csv are required")
		os.Exit(1)
	}

	params, err := dataconfig.Lookup(*datasetName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	xf, err := os.Open(*xPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *xPath, err)
		os.Exit(1)
	}
	defer xf.Close()
	split, err := dataset.ReadXTest(xf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading training features: %v\n", err)
		os.Exit(1)
	}

	yf, err := os.Open(*yPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *yPath, err)
		os.Exit(1)
	}
	defer yf.Close()
	labels, err := dataset.ReadYPred(yf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading training labels: %v\n", err)
		os.Exit(1)
	}
	if err := split.AttachYPred(labels); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d rows, %d features (%s)\n", len(split.XTest), len(split.Columns), *datasetName)

	nVal := int(float64(len(split.XTest)) * *valFraction)
	trainX, trainY := split.XTest[nVal:], split.YPred[nVal:]
	valX, valY := split.XTest[:nVal], split.YPred[:nVal]

	sizes := []int{len(split.Columns)}
	for i := 0; i < params.NLayers; i++ {
		sizes = append(sizes, params.NNeurons)
	}
	sizes = append(sizes, params.NClasses)

	rng := rand.New(rand.NewPCG(*seed, 0))
	net := trainnet.New(sizes, rng)

	cfg := trainnet.DefaultConfig()
	cfg.Epochs = params.NEpochs
	cfg.BatchSize = params.BatchSize
	cfg.LearningRate = params.LearnRate

	fmt.Printf("Training: sizes=%v epochs=%d lr=%.4f batch_size=%d seed=%d\n", sizes, cfg.Epochs, cfg.LearningRate, cfg.BatchSize, *seed)
	losses := net.Train(trainX, trainY, valX, valY, cfg, rng)

	fmt.Printf("Epoch 1 val loss: %.6f\n", losses[0])
	fmt.Printf("Final val loss:   %.6f\n", losses[len(losses)-1])
	if len(valX) > 0 {
		fmt.Printf("Val accuracy:     %.1f%%\n", 100*net.Accuracy(valX, valY))
	}

	data, err := json.Marshal(net)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing network: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*modelOutput, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *modelOutput, err)
		os.Exit(1)
	}
	fmt.Printf("Network saved to %s (%d bytes)\n", *modelOutput, len(data))
}
