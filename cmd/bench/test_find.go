package main

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// TestFind runs the same equality lookups twice: as a full scan and through an
// index on the same attribute.
func TestFind(c Config) {

	collection := CreateCollection(c.Base)

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	fmt.Println("Preload records...")
	Insert(client, c.Base, collection, c.N, func(i int64) JSON {
		return JSON{"email": fmt.Sprintf("user-%d@example.com", i), "n": i}
	})

	lookups := func(title string) {
		next := int64(-1)
		t0 := time.Now()
		Parallel(c.Workers, func() {
			for {
				i := atomic.AddInt64(&next, 1)
				if i >= c.N {
					return
				}
				resp := Post(c.Base, collection+":find", JSON{
					"where": fmt.Sprintf(`email = "user-%d@example.com"`, i),
				})
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					fmt.Println("ERROR: bad status:", resp.Status)
				}
			}
		})
		report(title, c.N, time.Since(t0))
	}

	lookups("found (scan)")

	resp := Post(c.Base, collection+":createIndex", JSON{"attribute": "email"})
	resp.Body.Close()

	lookups("found (index)")
}
