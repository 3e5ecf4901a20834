package main

import "priceparser/cmd"

func main() {
	cmd.Run()
}
