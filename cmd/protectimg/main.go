package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// go run . render https://example.com/cover.png -o cover_protected.png
// go run . render https://no-cors.example.com/photo.jpg --html photo.html
// go run . inspect https://example.com/cover.png
// go run . config init > ~/.config/protectimg/config.toml

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
