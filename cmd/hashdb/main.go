package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fulldump/goconfig"

	"github.com/fulldump/hashdb/bootstrap"
	"github.com/fulldump/hashdb/configuration"
)

var banner = `
 _               _         _ _
| |__   __ _ ___| |__   __| | |__
| '_ \ / _' / __| '_ \ / _' | '_ \
| | | | (_| \__ \ | | | (_| | |_) |
|_| |_|\__,_|___/_| |_|\__,_|_.__/
                       version ` + bootstrap.VERSION + `
`

func main() {

	c := configuration.Default()
	goconfig.Read(c)

	if c.Version {
		fmt.Println("Version:", bootstrap.VERSION)
		return
	}

	if c.ShowBanner {
		fmt.Println(banner)
	}

	if c.ShowConfig {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "    ")
		shown := *c
		if shown.ApiSecret != "" {
			shown.ApiSecret = "******"
		}
		e.Encode(shown)
	}

	start, _, err := bootstrap.Bootstrap(c)
	if err != nil {
		fmt.Println("ERROR:", err.Error())
		os.Exit(-1)
	}

	start()
}
