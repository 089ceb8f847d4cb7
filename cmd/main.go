package main

import (
	"github.com/frame-datalogger/cmd/agent"
)

func main() {
	agent.Execute()
}
