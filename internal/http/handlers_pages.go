package httpx

import (
	"fmt"
	"net/http"
)

// PageHandlers serves the gated page routes. Rendering is intentionally
// minimal: each page answers with a small HTML stub naming itself, since the
// interesting behavior is the access-control matrix in front of it.
type PageHandlers struct{}

// Page returns a handler serving the named page stub.
func (PageHandlers) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "<!DOCTYPE html><title>%s</title><h1>%s</h1>\n", name, name)
	}
}
