/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "litegram/cmd"

func main() {
	cmd.Execute()
}
