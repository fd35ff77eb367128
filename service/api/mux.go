// Copyright (c) 2022-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.

package api

import (
	"net/http"
	"strings"
)

type HandleFunc func(http.ResponseWriter, *http.Request)

func (s *Server) RegisterHandleFunc(path string, hf HandleFunc) {
	s.mux.HandleFunc(path, hf)
}

func (s *Server) RegisterHandler(path string, handler http.Handler) {
	s.mux.Handle(path, handler)
}

// RegisterMethodHandleFunc registers hf for path, replying with 405 to any
// request not using one of the given methods.
func (s *Server) RegisterMethodHandleFunc(path string, hf HandleFunc, methods ...string) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				hf(w, r)
				return
			}
		}
		w.Header().Set("Allow", strings.Join(methods, ", "))
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})
}
