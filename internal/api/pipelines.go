package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soochol/flume/internal/flow"
	"github.com/soochol/flume/internal/pipeline"
)

// pipelineSummary is the list view of a stored definition.
type pipelineSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Processes   int    `json:"processes"`
	Connections int    `json:"connections"`
}

// portView describes one declared port of a process.
type portView struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Flags       []string `json:"flags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// configView describes one declared configuration key.
type configView struct {
	Name        string `json:"name"`
	Default     any    `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// processCatalog is the full declarative surface of one process instance.
type processCatalog struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	InputPorts  []portView   `json:"input_ports"`
	OutputPorts []portView   `json:"output_ports"`
	Config      []configView `json:"config"`
}

// pipelineDetail is the single-pipeline view: the definition plus the port
// and config catalogs of its processes.
type pipelineDetail struct {
	*pipeline.Definition
	Catalog []processCatalog `json:"catalog"`
}

func (s *Server) listPipelines(w http.ResponseWriter, r *http.Request) {
	defs := s.runner.Store().List()
	out := make([]pipelineSummary, 0, len(defs))
	for _, def := range defs {
		out = append(out, pipelineSummary{
			Name:        def.Name,
			Description: def.Description,
			Processes:   len(def.Processes),
			Connections: len(def.Connections),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createPipeline(w http.ResponseWriter, r *http.Request) {
	var def pipeline.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode definition: %w", err))
		return
	}
	if err := s.runner.Store().Put(&def); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

func (s *Server) getPipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def, err := s.runner.Store().Get(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	catalog, err := s.buildCatalog(def)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, pipelineDetail{Definition: def, Catalog: catalog})
}

func (s *Server) deletePipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.runner.Store().Delete(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rec, err := s.runner.Run(r.Context(), name, "api", "")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrNotFound) {
			status = http.StatusNotFound
		}
		// The record still carries the failure detail.
		writeJSON(w, status, rec)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Registry().Types())
}

// buildCatalog instantiates each process of a definition (without wiring
// it) and reads its declarative surface.
func (s *Server) buildCatalog(def *pipeline.Definition) ([]processCatalog, error) {
	catalog := make([]processCatalog, 0, len(def.Processes))
	for _, pd := range def.Processes {
		proc, err := s.runner.Registry().Create(pd.Type, pd.Name, flow.ConfigFromMap(pd.Config))
		if err != nil {
			return nil, err
		}
		catalog = append(catalog, processCatalog{
			Name:        proc.Name(),
			Type:        proc.Type(),
			InputPorts:  portViews(proc.InputPorts(), proc.InputPortInfo),
			OutputPorts: portViews(proc.OutputPorts(), proc.OutputPortInfo),
			Config:      configViews(proc),
		})
	}
	return catalog, nil
}

func portViews(names []string, info func(string) (flow.PortInfo, error)) []portView {
	seen := make(map[string]bool, len(names))
	out := make([]portView, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		pi, err := info(name)
		if err != nil {
			continue
		}
		var flags []string
		for _, f := range pi.Flags.List() {
			flags = append(flags, string(f))
		}
		out = append(out, portView{
			Name:        name,
			Type:        pi.Type,
			Flags:       flags,
			Description: pi.Description,
		})
	}
	return out
}

func configViews(proc flow.Process) []configView {
	seen := make(map[string]bool)
	var out []configView
	for _, key := range proc.AvailableConfig() {
		if seen[key] {
			continue
		}
		seen[key] = true
		ci, err := proc.ConfigInfo(key)
		if err != nil {
			continue
		}
		out = append(out, configView{
			Name:        key,
			Default:     ci.Default,
			Description: ci.Description,
		})
	}
	return out
}
