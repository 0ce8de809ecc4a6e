// Command goboot inspects a service manifest without constructing anything.
//
//	goboot order -m services.yaml
//	goboot graph -m services.yaml --dot | dot -Tsvg > graph.svg
//	goboot check -m services.yaml
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
