// Command main-app serves the multi-zone hub page and forwards zone paths
// to the zones' own servers.
package main

import (
	"os"

	"github.com/multizone/pkg/config"
	"github.com/multizone/pkg/pages"
	"github.com/multizone/pkg/server"
)

func main() {
	os.Exit(server.Main(pages.KindMain, config.DefaultMain(), os.Args[1:], os.Stderr))
}
