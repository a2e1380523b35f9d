package main

import "github.com/frahmantamala/civic-report/cmd"

func main() {
	cmd.Execute()
}
