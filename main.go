package main

import "github.com/penflow/penflow/cmd"

func main() {
	cmd.Execute()
}
