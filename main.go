package main

import "github.com/Mohsinsiddi/ogview/cmd"

func main() {
	cmd.Execute()
}
