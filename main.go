package main

import (
	"github.com/zoza1982/netscanner/cmd"
)

func main() {
	cmd.Execute()
}
