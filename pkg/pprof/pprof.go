package pprof

import (
	"net/http"
	"net/http/pprof"
	"strings"
)

// DefaultPath is where the profiles are mounted when no prefix is given
const DefaultPath = "/debug/pprof"

var profiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// Register mounts the runtime profiling handlers under prefix
func Register(mux *http.ServeMux, prefix string) {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultPath
	}
	mux.HandleFunc(prefix+"/", pprof.Index)
	mux.HandleFunc(prefix+"/cmdline", pprof.Cmdline)
	mux.HandleFunc(prefix+"/profile", pprof.Profile)
	mux.HandleFunc(prefix+"/symbol", pprof.Symbol)
	mux.HandleFunc(prefix+"/trace", pprof.Trace)
	for _, name := range profiles {
		mux.Handle(prefix+"/"+name, pprof.Handler(name))
	}
}
