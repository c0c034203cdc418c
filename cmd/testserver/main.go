package main

import (
	"flag"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/fatih/color"
)

const hostPage = `<html>
<head><title>xssdetective playground</title></head>
<body>
<h1>Playground</h1>

<form name="search" action="/search" method="get">
  <input name="q" placeholder="search">
  <input type="submit" value="Search">
</form>

<form name="comment" action="/comment" method="post" enctype="multipart/form-data">
  <input type="hidden" name="token" value="c0ffee">
  <textarea name="body"></textarea>
  <select name="topic">
    <option value="general" selected>General</option>
    <option value="bugs">Bugs</option>
  </select>
  <input type="text" name="nick" value="guest">
  <input type="submit" value="Post">
</form>

<form name="profile" action="/profile" method="post">
  <input type="text" name="display">
  <input type="submit" value="Save">
</form>

<form name="silent" action="/silent" method="post">
  <input type="text" name="anything">
  <input type="submit" value="Send">
</form>
</body>
</html>`

func main() {
	addr := flag.String("addr", "127.0.0.1:8081", "listen address")
	flag.Parse()

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, hostPage)
	})

	// Vulnerable reflection in element content
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><h1>Search Results</h1><p>You searched for: %s</p></body></html>",
			r.URL.Query().Get("q"))
	})

	// Vulnerable reflection inside a textarea, an attribute and the title
	mux.HandleFunc("/comment", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><head><title>Comment by %s</title></head><body>
<p>Topic: <span data-topic="%s">%s</span></p>
<textarea>%s</textarea>
</body></html>`,
			r.FormValue("nick"), r.FormValue("topic"), r.FormValue("topic"), r.FormValue("body"))
	})

	// Escaped reflection: every check fails here
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><body><p>Saved: %s</p></body></html>", html.EscapeString(r.FormValue("display")))
	})

	// Empty body: frames aimed here never become ready
	mux.HandleFunc("/silent", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	color.Cyan("[*] Vulnerable server running on http://%s", *addr)
	if err := srv.ListenAndServe(); err != nil {
		color.Red("[!] %v", err)
	}
}
