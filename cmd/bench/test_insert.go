package main

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// TestInsert sends N records split among the workers, one streaming request
// per worker.
func TestInsert(c Config) {

	collection := CreateCollection(c.Base)

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     1024,
			MaxIdleConnsPerHost: 1024,
			MaxIdleConns:        1024,
		},
	}

	items := c.N

	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(time.Second):
				fmt.Println("items:", atomic.LoadInt64(&items))
			}
		}
	}()

	perWorker := c.N / int64(c.Workers)

	t0 := time.Now()
	Parallel(c.Workers, func() {
		Insert(client, c.Base, collection, perWorker, func(i int64) JSON {
			atomic.AddInt64(&items, -1)
			return JSON{"n": i, "name": fmt.Sprint("user-", i)}
		})
	})

	report("sent", perWorker*int64(c.Workers), time.Since(t0))
}
