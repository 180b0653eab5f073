// modelcheck validates a pipeline artifact without starting the server.
package main

import (
	"fmt"
	"os"
	"strings"

	"exoserve/ml"
)

func main() {
	path := "rf_pipeline.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	pipeline, err := ml.LoadPipeline(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "modelcheck: %v\n", err)
		os.Exit(1)
	}

	info := pipeline.Info()
	fmt.Printf("artifact:  %s\n", path)
	fmt.Printf("type:      %s\n", info.ModelType)
	fmt.Printf("trees:     %d\n", info.TreeCount)
	fmt.Printf("classes:   %v\n", info.Classes)
	fmt.Printf("features:  %d (%s ...)\n", len(info.FeatureNames), strings.Join(info.FeatureNames[:4], ", "))
}
