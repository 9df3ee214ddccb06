package main

import "catalog-builder/cmd"

func main() {
	cmd.Execute()
}
