package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/fulldump/goconfig"
)

type Config struct {
	Test    string `usage:"name of the test: ALL | INSERT | FIND | REMOVE"`
	Base    string `usage:"base URL, an embedded server is started when empty"`
	Addr    string `usage:"address of the embedded server"`
	N       int64  `usage:"number of records"`
	Workers int    `usage:"number of workers"`
}

var cleanups []func()

func main() {

	defer func() {
		fmt.Println("Cleaning up...")
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	c := Config{
		Test:    "all",
		Base:    "",
		Addr:    "127.0.0.1:8765",
		N:       5_000,
		Workers: 8,
	}
	goconfig.Read(&c)

	if c.Base == "" {
		start, stop := CreateServer(&c)
		defer stop()
		go start()
		WaitReady(c.Base)
	}

	switch strings.ToUpper(c.Test) {
	case "ALL":
		TestInsert(c)
		TestFind(c)
		TestRemove(c)
	case "INSERT":
		TestInsert(c)
	case "FIND":
		TestFind(c)
	case "REMOVE":
		TestRemove(c)
	default:
		log.Fatalf("Unknown test %s", c.Test)
	}

}
