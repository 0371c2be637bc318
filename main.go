package main

import "github.com/ValentinKolb/rmemstore/cmd"

func main() {
	cmd.Execute()
}
