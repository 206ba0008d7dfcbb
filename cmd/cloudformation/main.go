package main

import (
	"os"

	"github.com/aws/jsii-runtime-go"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer jsii.Close()

	if err := newRootCmd(os.Stdout, nil).Execute(); err != nil {
		return 1
	}
	return 0
}
