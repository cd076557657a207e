package main

import "github.com/eryxon/uns-gateway/cmd"

func main() {
	cmd.Execute()
}
