/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/blinkdb/cmd/blinkdb/cmd"
)

func main() {
	cmd.Execute()
}
