package main

import "github.com/jsphweid/engrave/cmd"

func main() {
	cmd.Execute()
}
