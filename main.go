package main

import "github.com/fakeyudi/focustrail/cmd"

func main() {
	cmd.Execute()
}
