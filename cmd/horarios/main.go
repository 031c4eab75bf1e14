package main

import (
	_ "time/tzdata"

	"github.com/Aliagaaaaaa/horarios-api/internal/cli"
)

func main() {
	cli.Execute()
}
