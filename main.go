package main

import "github.com/yangming0322/splittable/cmd"

func main() {
	cmd.Execute()
}
