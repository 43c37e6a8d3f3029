package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fulldump/hashdb/bootstrap"
	"github.com/fulldump/hashdb/configuration"
)

type JSON = map[string]any

const database = "bench"

func Parallel(workers int, f func()) {
	wg := &sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	wg.Wait()
}

func TempDir() (string, func()) {
	dir, err := os.MkdirTemp("", "hashdb_bench_*")
	if err != nil {
		panic("Could not create temp directory: " + err.Error())
	}

	cleanup := func() {
		os.RemoveAll(dir)
	}

	return dir, cleanup
}

func Post(base, path string, payload any) *http.Response {
	body, _ := json.Marshal(payload)

	resp, err := http.Post(base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Println("ERROR: do request:", err.Error())
		os.Exit(4)
	}
	return resp
}

// CreateCollection creates a fresh collection inside the bench database and
// returns its path below /v1.
func CreateCollection(base string) string {

	resp := Post(base, "/v1/databases", JSON{"name": database})
	resp.Body.Close()

	name := "col-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	resp = Post(base, "/v1/databases/"+database+"/collections", JSON{"name": name})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		io.Copy(os.Stdout, resp.Body)
		os.Exit(5)
	}

	return "/v1/databases/" + database + "/collections/" + name
}

func CreateServer(c *Config) (start, stop func()) {
	dir, cleanup := TempDir()
	cleanups = append(cleanups, cleanup)

	conf := configuration.Default()
	conf.Dir = dir
	conf.HttpAddr = c.Addr
	conf.LogLevel = "warn"
	c.Base = "http://" + conf.HttpAddr

	start, stop, err := bootstrap.Bootstrap(conf)
	if err != nil {
		fmt.Println("ERROR: bootstrap:", err.Error())
		os.Exit(2)
	}
	return start, stop
}

// WaitReady polls the api until the data is loaded.
func WaitReady(base string) {
	for i := 0; i < 100; i++ {
		resp, err := http.Get(base + "/v1/databases")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Println("ERROR: server not ready")
	os.Exit(3)
}

// Insert streams n records into collection with a single request.
func Insert(client *http.Client, base, collection string, n int64, record func(i int64) JSON) {
	r, w := io.Pipe()

	encoder := json.NewEncoder(w)
	go func() {
		for i := int64(0); i < n; i++ {
			encoder.Encode(record(i))
		}
		w.Close()
	}()

	req, err := http.NewRequest("POST", base+collection+":insert", r)
	if err != nil {
		fmt.Println("ERROR: new request:", err.Error())
		os.Exit(3)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("ERROR: do request:", err.Error())
		os.Exit(4)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func report(verb string, n int64, took time.Duration) {
	fmt.Println(verb+":", n)
	fmt.Println("took:", took)
	fmt.Printf("Throughput: %.2f ops/sec\n", float64(n)/took.Seconds())
}
