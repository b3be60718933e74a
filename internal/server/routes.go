package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"bulliondeals/internal/models"
	"bulliondeals/internal/optimizer"
)

// RegisterRoutes mounts the API on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", s.getHealth)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHandler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", handler(s.getCatalog))
		r.Get("/deals", handler(s.getDeals))
		r.Get("/best-of", handler(s.getBestOf))
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			replyError(r.Context(), w, err)
		}
	}
}

type dealsResponse struct {
	Metal       models.Metal        `json:"metal"`
	TargetOz    float64             `json:"target_oz"`
	TargetLabel string              `json:"target_label"`
	RunID       string              `json:"run_id"`
	Deals       []models.DealOption `json:"deals"`
}

type bestOfResponse struct {
	RunID  string          `json:"run_id"`
	BestOf []models.BestOf `json:"best_of"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	replyJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	cat, err := s.current(r)
	if err != nil {
		return err
	}

	if raw := r.URL.Query().Get("metal"); raw != "" {
		metal, err := parseMetal(raw)
		if err != nil {
			return err
		}

		filtered := &models.Catalog{RunMetadata: cat.RunMetadata, Products: cat.ByMetal(metal)}
		if filtered.Products == nil {
			filtered.Products = []models.Product{}
		}

		cat = filtered
	}

	replyJSON(ctx, w, http.StatusOK, cat)

	return nil
}

func (s *Server) getDeals(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	metal, err := parseMetal(q.Get("metal"))
	if err != nil {
		return err
	}

	targetOz, err := strconv.ParseFloat(q.Get("target_oz"), 64)
	if err != nil || targetOz <= 0 || math.IsInf(targetOz, 0) || math.IsNaN(targetOz) {
		return fmt.Errorf("%w: target_oz must be a positive number", ErrInvalidArgument)
	}

	limit := 0

	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return fmt.Errorf("%w: limit must be a non-negative integer", ErrInvalidArgument)
		}
	}

	cat, err := s.current(r)
	if err != nil {
		return err
	}

	deals := optimizer.FindBestDeals(cat, metal, targetOz)
	if limit > 0 && len(deals) > limit {
		deals = deals[:limit]
	}

	if deals == nil {
		deals = []models.DealOption{}
	}

	replyJSON(r.Context(), w, http.StatusOK, dealsResponse{
		Metal:       metal,
		TargetOz:    targetOz,
		TargetLabel: optimizer.FormatWeight(targetOz),
		RunID:       cat.RunID,
		Deals:       deals,
	})

	return nil
}

func (s *Server) getBestOf(w http.ResponseWriter, r *http.Request) error {
	cat, err := s.current(r)
	if err != nil {
		return err
	}

	replyJSON(r.Context(), w, http.StatusOK, bestOfResponse{
		RunID:  cat.RunID,
		BestOf: optimizer.BestOf(cat, optimizer.DefaultTargets(), s.bestOfLimit),
	})

	return nil
}

func (s *Server) current(r *http.Request) (*models.Catalog, error) {
	cat, err := s.snapshots.Current(r.Context())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return cat, nil
}

func parseMetal(raw string) (models.Metal, error) {
	metal := models.Metal(strings.ToLower(strings.TrimSpace(raw)))
	if !metal.IsValid() {
		return "", fmt.Errorf("%w: unknown metal %q", ErrInvalidArgument, raw)
	}

	return metal, nil
}
