package main

import (
	"os"

	"go.withmatt.com/otpwatch/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
