package main

import (
	"flag"
	"log"

	"guidanceops-sim/internal/dashboard"
)

func main() {
	out := flag.String("out", "build", "Output directory for rendered dashboards")
	flag.Parse()

	if err := dashboard.Render(*out); err != nil {
		log.Fatal(err)
	}
}
