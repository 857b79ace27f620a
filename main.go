package main

import "github.com/drgolem/audiostreamer/cmd"

func main() {
	cmd.Execute()
}
