// Package main is the entry point for autoadmin.
package main

func main() {
	Execute()
}
