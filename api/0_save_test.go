package api

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fulldump/apitest"
	"github.com/go-json-experiment/json/jsontext"
)

// Save writes a markdown page with the curl command and the http exchange of
// response into $API_EXAMPLES_PATH. Nothing is written when it is not set.
func Save(response *apitest.Response, title, description string) {

	examplesPath := os.Getenv("API_EXAMPLES_PATH")
	if examplesPath == "" {
		return
	}

	request := response.Request

	query := request.URL.RawQuery
	if query != "" {
		query = "?" + query
	}
	requestBody := formatJSON(response.BodyRequestString())

	s := &strings.Builder{}

	fmt.Fprintf(s, "# %s\n\n", title)
	if description != "" {
		fmt.Fprintf(s, "%s\n\n", strings.TrimSpace(description))
	}

	s.WriteString("Curl example:\n\n```sh\ncurl ")
	if request.Method != "GET" {
		s.WriteString("-X " + request.Method + " ")
	}
	fmt.Fprintf(s, "\"https://example.com%s%s\"", request.URL.Path, query)
	for k, values := range request.Header {
		for _, v := range values {
			fmt.Fprintf(s, " \\\n-H \"%s: %s\"", k, v)
		}
	}
	if requestBody != "" {
		fmt.Fprintf(s, " \\\n-d '%s'", requestBody)
	}
	s.WriteString("\n```\n\n")

	s.WriteString("HTTP request/response example:\n\n```http\n")
	fmt.Fprintf(s, "%s %s%s %s\nHost: example.com\n", request.Method, request.URL.Path, query, request.Proto)
	for k, values := range request.Header {
		for _, v := range values {
			fmt.Fprintf(s, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintf(s, "\n%s\n\n", requestBody)

	fmt.Fprintf(s, "%s %s\n", response.Proto, response.Status)
	keys := make([]string, 0, len(response.Header))
	for k := range response.Header {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if k == "Date" {
			s.WriteString("Date: Mon, 15 Aug 2022 02:08:13 GMT\n")
			continue
		}
		for _, v := range response.Header[k] {
			fmt.Fprintf(s, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintf(s, "\n%s\n```\n", formatJSON(response.BodyString()))

	filename := strings.ReplaceAll(strings.ToLower(title), " ", "_") + ".md"
	err := os.WriteFile(filepath.Join(examplesPath, filepath.Clean(filename)), []byte(s.String()), 0666)
	if err != nil {
		fmt.Println("ERROR: save example:", err)
	}
}

func formatJSON(body string) string {
	value := jsontext.Value(body)
	if !value.IsValid() {
		return body
	}
	err := value.Indent(jsontext.WithIndent("    "))
	if err != nil {
		return body
	}
	return string(value)
}
