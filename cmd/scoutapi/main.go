package main

import "github.com/katlaang/pestscan-sub000/cmd/scoutapi/cmd"

func main() {
	cmd.Execute()
}
