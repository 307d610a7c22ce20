package main

import "github.com/drgolem/ringplayer/cmd"

func main() {
	cmd.Execute()
}
