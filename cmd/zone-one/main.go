// Command zone-one serves zone-one's pages and its prefixed assets.
package main

import (
	"os"

	"github.com/multizone/pkg/config"
	"github.com/multizone/pkg/pages"
	"github.com/multizone/pkg/server"
)

func main() {
	os.Exit(server.Main(pages.KindZone, config.DefaultZone(), os.Args[1:], os.Stderr))
}
