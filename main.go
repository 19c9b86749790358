package main

import "github.com/kozaktomas/plant-doctor/cmd"

func main() {
	cmd.Execute()
}
