package main

import "github.com/inference-sim/kernelshap/cmd"

func main() {
	cmd.Execute()
}
