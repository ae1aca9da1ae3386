package main

import "github.com/katlaang/pestscan-sub000/cmd/scoutctl/cmd"

func main() {
	cmd.Execute()
}
