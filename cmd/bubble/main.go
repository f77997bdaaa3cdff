package main

import (
	"os"

	"horse.fit/bubble/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
