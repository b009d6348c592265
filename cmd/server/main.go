package main

import (
	"os"

	"github.com/belikesnab/peach/internal/server"
)

func main() {
	os.Exit(server.Main())
}
