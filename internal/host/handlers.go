package host

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
	"github.com/roach88/tagstamp/internal/layout"
	"github.com/roach88/tagstamp/internal/model"
)

// maxBody bounds request bodies.
const maxBody = 1 << 20

// accepted is the body of every command endpoint. Accepted is false when a
// previous trigger of the same action is still being processed.
type accepted struct {
	Accepted bool `json:"accepted"`
}

// columnsResponse is the body of GET /api/columns.
type columnsResponse struct {
	Params  layout.Params             `json:"params"`
	Columns [][]catalog.DocumentEntry `json:"columns"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeAccepted(w http.ResponseWriter, ok bool) {
	status := http.StatusAccepted
	if !ok {
		status = http.StatusConflict
	}
	writeJSON(w, status, accepted{Accepted: ok})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.NewDocument(s.catalog.Entries()))
}

func (s *Server) columns(w http.ResponseWriter, r *http.Request) {
	p := s.params
	for name, dst := range map[string]*int{
		"columns": &p.Columns,
		"height":  &p.ViewportHeight,
	} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		*dst = n
	}

	parts := layout.Partition(s.catalog.Entries(), p)
	resp := columnsResponse{Params: p, Columns: make([][]catalog.DocumentEntry, len(parts))}
	for i, col := range parts {
		resp.Columns[i] = catalog.NewDocument(col).Templates
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.State())
}

func (s *Server) icon(w http.ResponseWriter, r *http.Request) {
	icon, ok := s.engine.Icon(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "icon not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", icon.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(icon.Data)
}

func (s *Server) postSelection(w http.ResponseWriter, r *http.Request) {
	var sel model.Selection
	if !decodeBody(w, r, &sel) {
		return
	}
	s.hub.SetSelection(sel)
	writeAccepted(w, s.engine.SelectionInvalidated())
}

func (s *Server) postModifiers(w http.ResponseWriter, r *http.Request) {
	var m model.Modifiers
	if !decodeBody(w, r, &m) {
		return
	}
	writeAccepted(w, s.engine.ModifiersChanged(m))
}

func (s *Server) datasetChanged(w http.ResponseWriter, r *http.Request) {
	writeAccepted(w, s.engine.DatasetChanged())
}

// template resolves the {id} parameter, writing 404 when it is unknown.
func (s *Server) template(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, ok := s.catalog.Template(id); !ok {
		writeError(w, http.StatusNotFound, "template not found")
		return "", false
	}
	return id, true
}

func (s *Server) selectTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.template(w, r)
	if !ok {
		return
	}
	writeAccepted(w, s.engine.SelectTemplate(id))
}

func (s *Server) clickTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.template(w, r)
	if !ok {
		return
	}
	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > engine.MaxClicks {
			writeError(w, http.StatusBadRequest, "count must be between 1 and 5")
			return
		}
		count = n
	}
	writeAccepted(w, s.engine.Click(id, count))
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	writeAccepted(w, s.engine.Toggle())
}

func (s *Server) deactivate(w http.ResponseWriter, r *http.Request) {
	writeAccepted(w, s.engine.Deactivate())
}
