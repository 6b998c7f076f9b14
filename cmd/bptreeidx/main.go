// Command bptreeidx serves a mapped B+tree index over HTTP for manual
// exercise and demonstration.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"strconv"
	"sync"

	"mmapbtree/pkg/btree"
)

// Response is a generic JSON response envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Server holds the open index and serializes open/close against
// concurrent request handling; individual Get/Insert/Remove calls on the
// tree itself coordinate through the tree's own per-page latches.
type Server struct {
	mu   sync.RWMutex
	tree *btree.Tree
	path string
}

type entry struct {
	Key   uint64 `json:"key"`
	Value uint64 `json:"value"`
}

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	path := flag.String("path", "", "index file path to open on startup (optional)")
	flag.Parse()

	server := &Server{}
	if *path != "" {
		tr, err := btree.Open(*path)
		if err != nil {
			log.Fatalf("bptreeidx: opening %s: %v", *path, err)
		}
		server.tree = tr
		server.path = *path
	}

	cors := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			h(w, r)
		}
	}

	http.HandleFunc("/api/status", cors(server.handleStatus))
	http.HandleFunc("/api/open", cors(server.handleOpen))
	http.HandleFunc("/api/close", cors(server.handleClose))
	http.HandleFunc("/api/get", cors(server.handleGet))
	http.HandleFunc("/api/put", cors(server.handlePut))
	http.HandleFunc("/api/delete", cors(server.handleDelete))
	http.HandleFunc("/api/scan", cors(server.handleScan))
	http.HandleFunc("/api/count", cors(server.handleCount))

	log.Printf("bptreeidx listening on %s\n", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, status int, err string) {
	writeJSON(w, status, Response{Success: false, Error: err})
}

func (s *Server) currentTree() *btree.Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"open": s.tree != nil,
		"path": s.path,
	}})
}

type openRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	tr, err := btree.Open(req.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	if s.tree != nil {
		s.tree.Close()
	}
	s.tree = tr
	s.path = req.Path
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree != nil {
		s.tree.Close()
		s.tree = nil
		s.path = ""
	}
	writeJSON(w, http.StatusOK, Response{Success: true})
}

func parseKey(r *http.Request) (uint64, error) {
	return strconv.ParseUint(r.URL.Query().Get("key"), 10, 64)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	tr := s.currentTree()
	if tr == nil {
		writeError(w, http.StatusServiceUnavailable, "no index open")
		return
	}
	key, err := parseKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key")
		return
	}
	value, ok := tr.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: entry{Key: key, Value: value}})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	tr := s.currentTree()
	if tr == nil {
		writeError(w, http.StatusServiceUnavailable, "no index open")
		return
	}
	var e entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	inserted := tr.Insert(e.Key, e.Value)
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]bool{"inserted": inserted}})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	tr := s.currentTree()
	if tr == nil {
		writeError(w, http.StatusServiceUnavailable, "no index open")
		return
	}
	key, err := parseKey(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid key")
		return
	}
	prior, removed := tr.Remove(key)
	if !removed {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: entry{Key: key, Value: prior}})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	tr := s.currentTree()
	if tr == nil {
		writeError(w, http.StatusServiceUnavailable, "no index open")
		return
	}

	start := uint64(0)
	if raw := r.URL.Query().Get("start"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start")
			return
		}
		start = v
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = v
	}

	items := make([]entry, 0, limit)
	if limit > 0 {
		tr.Ascend(start, func(key, value uint64) bool {
			items = append(items, entry{Key: key, Value: value})
			return len(items) < limit
		})
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: items})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	tr := s.currentTree()
	if tr == nil {
		writeError(w, http.StatusServiceUnavailable, "no index open")
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]uint64{"count": tr.Count()}})
}
