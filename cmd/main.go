// farm_service scores and classifies barn disease risk from inspection checklists.
//
// Usage:
//
//	farm_service serve [--migrate] [--warm]
//	farm_service migrate
//	farm_service train
//	farm_service predict [--hygiene=N ...] [--values=v1,...,v7] [--server=URL]
//	farm_service score [--hygiene=N ...] [--values=v1,...,v7]
//	farm_service recompute
//	farm_service pending
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
