package main

import (
	"github.com/roadlog/roadlog/cmd/roadlog/cmd"
)

func main() {
	cmd.Execute()
}
