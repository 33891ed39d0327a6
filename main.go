/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	_ "time/tzdata"

	"github.com/salonbook/apiserver/cmd"
)

func main() {
	cmd.Execute()
}
