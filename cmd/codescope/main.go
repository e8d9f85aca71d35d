// Command codescope is the CLI front-end over the core indexing and hybrid
// search engine (internal/api).
package main

import "github.com/localcode/codescope/internal/cli"

func main() {
	cli.Execute()
}
