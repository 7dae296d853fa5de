package main

import "certdash/internal/app"

func main() {
	app.Main()
}
