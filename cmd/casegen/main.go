// Package main is the entry point for the casegen service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/casegen/cmd/casegen/app"
)

func main() {
	app.NewApp().Run()
}
