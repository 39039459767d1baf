// explain loads a trained network and a test split, builds the base MILP
// encoding once, and runs the feature-elimination explication engine over
// every row, printing the relevant-feature mask per row and a final
// metrics report. This is the "surrounding program" that selects a dataset
// and invokes the engine (spec §6); it is explicitly not part of the core.
//
// Usage:
//
//	explain -model model/iris.json -domains-csv train_x.csv -x-test-csv test_x.csv
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"flag"

	"explainer/internal/dataset"
	"explainer/internal/explication"
	"explainer/internal/interval"
	"explainer/internal/metrics"
	"explainer/internal/milp"
	"explainer/internal/network"
	"explainer/internal/solver/gonumlp"
	"explainer/internal/trainnet"
)

func main() {
	modelPath := flag.String("model", "", "path to trained network JSON (trainnet.Net format)")
	domainsPath := flag.String("domains-csv", "", "path to training features CSV, used to derive feature domains")
	xTestPath := flag.String("x-test-csv", "", "path to test features CSV")
	yPredPath := flag.String("y-pred-csv", "", "path to predicted-class CSV (single column); computed from the model if omitted")
	useBox := flag.Bool("use-box", true, "enable the interval-arithmetic pre-filter before falling back to the solver")
	parallel := flag.Int("parallel", 1, "number of rows to explicate concurrently (each worker clones its own probe)")
	flag.Parse()

	if *modelPath == "" || *domainsPath == "" || *xTestPath == "" {
		fmt.Fprintln(os.Stderr, "-model, -domains-csv and -x-test-csv are required")
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	net, err := loadNetwork(*modelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading network: %v\n", err)
		os.Exit(1)
	}

	domainsFile, err := os.Open(*domainsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *domainsPath, err)
		os.Exit(1)
	}
	domains, err := dataset.ComputeFeatureDomains(domainsFile)
	domainsFile.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing feature domains: %v\n", err)
		os.Exit(1)
	}

	xFile, err := os.Open(*xTestPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *xTestPath, err)
		os.Exit(1)
	}
	split, err := dataset.ReadXTest(xFile)
	xFile.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading test split: %v\n", err)
		os.Exit(1)
	}

	if *yPredPath != "" {
		yFile, err := os.Open(*yPredPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %s: %v\n", *yPredPath, err)
			os.Exit(1)
		}
		preds, err := dataset.ReadYPred(yFile)
		yFile.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading predictions: %v\n", err)
			os.Exit(1)
		}
		if err := split.AttachYPred(preds); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	} else {
		preds := make([]int, len(split.XTest))
		for i, row := range split.XTest {
			preds[i] = net.Predict(row)
		}
		split.YPred = preds
	}

	met := &metrics.Metrics{}
	base, err := milp.Build(net, domains.Domains, gonumlp.New(), met, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building MILP model: %v\n", err)
		os.Exit(1)
	}

	results := make([]explication.Result, len(split.XTest))
	errs := make([]error, len(split.XTest))
	runRows(base, domains.Domains, net, logger, met, split, *useBox, *parallel, results, errs)

	for i, row := range split.XTest {
		if errs[i] != nil {
			fmt.Printf("row %d: error: %v\n", i, errs[i])
			continue
		}
		fmt.Printf("row %d (predicted class %d): relevant=%s\n", i, split.YPred[i], maskString(results[i].Relevant))
	}

	report := met.Prepare(len(split.XTest), len(split.Columns))
	report.Log(logger)
}

// runRows drives Explain across every row of split, accumulating into met.
// met is only ever touched by this goroutine (the "single driver" of spec
// §5): the sequential path passes it straight to one Engine, and the
// parallel path gives each worker its own private Metrics -- and hence its
// own Engine, since Engine.Metrics is a plain field, not a per-call
// argument -- merging every worker's counters into met only after
// wg.Wait() returns and all workers have stopped writing to them.
func runRows(base *milp.Model, domains []interval.Interval, net *network.Network, logger *log.Logger, met *metrics.Metrics, split dataset.Split, useBox bool, parallel int, results []explication.Result, errs []error) {
	if parallel <= 1 {
		engine := explication.New(base, domains, net, met, logger)
		for i, row := range split.XTest {
			results[i], errs[i] = engine.Explain(row, split.YPred[i], useBox)
		}
		return
	}

	jobs := make(chan int)
	workerMetrics := make([]*metrics.Metrics, parallel)
	var wg sync.WaitGroup
	for w := 0; w < parallel; w++ {
		workerMetrics[w] = &metrics.Metrics{}
		engine := explication.New(base, domains, net, workerMetrics[w], logger)
		wg.Add(1)
		go func(engine *explication.Engine) {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = engine.Explain(split.XTest[i], split.YPred[i], useBox)
			}
		}(engine)
	}
	for i := range split.XTest {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, wm := range workerMetrics {
		met.Merge(wm)
	}
}

func loadNetwork(path string) (*network.Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trained := &trainnet.Net{}
	if err := trained.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return trained.Export()
}

func maskString(m explication.Mask) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range m {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
