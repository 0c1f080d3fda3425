// The main package for the alkoteka-crawler executable.
package main

import (
	"github.com/mkraev/alkoteka-crawler/cmd"
)

func main() {
	cmd.Execute()
}
