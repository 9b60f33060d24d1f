package handlers

import (
	"fmt"
	"net/http"
)

// Test answers the reachability check.
func Test(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "Hello world!")
}
