package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// TestRemove preloads N records tagged with a worker number, then every worker
// removes its own records with one request.
func TestRemove(c Config) {

	collection := CreateCollection(c.Base)

	transport := &http.Transport{
		MaxConnsPerHost:     1024,
		MaxIdleConns:        1024,
		MaxIdleConnsPerHost: 1024,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}

	fmt.Println("Preload records...")
	Insert(client, c.Base, collection, c.N, func(i int64) JSON {
		return JSON{"value": 0, "worker": i % int64(c.Workers)}
	})

	removeURL := c.Base + collection + ":remove"

	t0 := time.Now()
	worker := int64(-1)
	Parallel(c.Workers, func() {
		w := atomic.AddInt64(&worker, 1)

		body := fmt.Sprintf(`{"where":"worker = %d"}`, w)
		req, err := http.NewRequest(http.MethodPost, removeURL, strings.NewReader(body))
		if err != nil {
			fmt.Println("ERROR: new request:", err.Error())
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			fmt.Println("ERROR: do request:", err.Error())
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fmt.Println("ERROR: bad status:", resp.Status)
		}
	})

	report("removed", c.N, time.Since(t0))
}
