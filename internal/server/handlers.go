package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/hyperjump/medrag/internal/fileid"
	"github.com/hyperjump/medrag/internal/models"
	"github.com/hyperjump/medrag/pkg/utils"
	"go.uber.org/zap"
)

type askResponse struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Context   string   `json:"context"`
	ChunkIDs  []string `json:"chunk_ids"`
	Generated bool     `json:"generated"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("ask request", zap.String("question", utils.Truncate(req.Question, 80)), zap.Int("k", req.K))
	resp, err := s.answerer.Ask(r.Context(), req.Question, req.K)
	if err != nil {
		if errors.Is(err, models.ErrEmptyQuery) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, askResponse{
		Question:  resp.Question,
		Answer:    resp.Answer,
		Context:   resp.Context,
		ChunkIDs:  resp.ChunkIDs,
		Generated: resp.Generated,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.answerer.History(r.Context()))
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("clear history request")
	if err := s.answerer.ClearHistory(r.Context()); err != nil {
		s.logger.Error("clear history failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := s.store.Collections(ctx)
	if err != nil {
		s.logger.Error("status: list collections failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Strings(names)
	collections := make(map[string]int, len(names))
	for _, name := range names {
		c, err := s.store.OpenOrCreate(ctx, name)
		if err != nil {
			s.logger.Error("status: open collection failed", zap.String("collection", name), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		n, err := c.Count(ctx)
		if err != nil {
			s.logger.Error("status: count failed", zap.String("collection", name), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		collections[name] = n
	}

	resp := map[string]interface{}{
		"serving_model": s.diagnostics.ServingModel(),
		"collections":   collections,
		"dropped_total": s.diagnostics.DroppedTotal(),
	}
	if s.config != nil {
		models := s.config.ModelIDs()
		expected := make(map[string]string, len(models))
		for _, id := range models {
			expected[id] = fileid.CollectionName(id)
		}
		resp["models"] = models
		resp["model_collections"] = expected
		resp["config"] = map[string]interface{}{
			"vector_backend":     s.config.Vector.Backend,
			"interactions_store": s.config.Interactions.Store,
			"generation_model":   s.config.Generation.Model,
			"top_k":              s.config.Retrieval.TopK,
			"chunk_dir":          s.config.Paths.ChunkDir,
		}
		paths := []string{s.config.Paths.ChunkDir, s.config.Interactions.Path}
		if s.config.Vector.Backend != "pgvector" {
			paths = append(paths, s.config.Vector.Path)
		}
		if diskBytes, err := utils.DiskUsageBytes(paths...); err == nil {
			resp["disk_usage_bytes"] = diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
