package main

import (
	"log"

	"github.com/announa/blogpost/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
