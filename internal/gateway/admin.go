package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ventabot/ventabot/internal/queue"
	"github.com/ventabot/ventabot/internal/rag"
)

type ingestRequest struct {
	// Type selects the collection: "catalog" or "document".
	Type string `json:"type"`
	// Data carries inline content: a product array for catalog, a JSON
	// string for document. FilePath reads from disk instead.
	Data      json.RawMessage `json:"data,omitempty"`
	FilePath  string          `json:"file_path,omitempty"`
	SourceTag string          `json:"source_tag,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.retriever == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "error",
			"detail": "knowledge store unavailable",
		})
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status": "error",
			"detail": "invalid request: " + err.Error(),
		})
		return
	}

	var (
		chunks int
		err    error
	)
	switch req.Type {
	case "catalog":
		switch {
		case len(req.Data) > 0:
			var products []rag.Product
			if err := json.Unmarshal(req.Data, &products); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"status": "error",
					"detail": "invalid catalog data: " + err.Error(),
				})
				return
			}
			chunks, err = s.retriever.IngestCatalog(r.Context(), products)
		case req.FilePath != "":
			chunks, err = s.retriever.IngestCatalogFile(r.Context(), req.FilePath)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"status": "error",
				"detail": "catalog ingest needs data or file_path",
			})
			return
		}
	case "document":
		switch {
		case len(req.Data) > 0:
			var text string
			if err := json.Unmarshal(req.Data, &text); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"status": "error",
					"detail": "invalid document data: " + err.Error(),
				})
				return
			}
			chunks, err = s.retriever.IngestDocument(r.Context(), text, req.SourceTag)
		case req.FilePath != "":
			chunks, err = s.retriever.IngestDocumentFile(r.Context(), req.FilePath, req.SourceTag)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"status": "error",
				"detail": "document ingest needs data or file_path",
			})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status": "error",
			"detail": "unknown ingest type: " + req.Type,
		})
		return
	}

	if err != nil {
		slog.Error("ingest failed", "type", req.Type, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": "error",
			"detail": err.Error(),
		})
		return
	}

	slog.Info("ingest complete", "type", req.Type, "chunks", chunks)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"type":   req.Type,
		"chunks": chunks,
	})
}

// handleStats reports queue and knowledge-store counts. A failing
// subsystem degrades to an error field instead of failing the request.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	out := map[string]interface{}{
		"version": s.version,
		"env":     s.cfg.Env,
		"config": map[string]interface{}{
			"model":        s.cfg.Agents.Model,
			"window_turns": s.cfg.Store.WindowTurns,
			"top_k":        s.cfg.Knowledge.TopK,
			"workers":      s.cfg.Queue.Workers,
		},
	}

	if stats, err := s.queue.Stats(r.Context()); err != nil {
		out["queue"] = map[string]string{"error": err.Error()}
	} else {
		out["queue"] = stats
	}

	if s.retriever == nil {
		out["knowledge"] = map[string]string{"error": "knowledge store unavailable"}
	} else if counts, err := s.retriever.Stats(r.Context()); err != nil {
		out["knowledge"] = map[string]string{"error": err.Error()}
	} else {
		out["knowledge"] = counts
	}

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/admin/jobs/"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"status": "error",
			"detail": "invalid job id",
		})
		return
	}

	job, err := s.queue.Job(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"status": "not_found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": "error",
			"detail": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, job)
}
