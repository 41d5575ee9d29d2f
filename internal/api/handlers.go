package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/chocolat0w0/globe-3d-tle/internal/catalog"
	"github.com/chocolat0w0/globe-3d-tle/internal/compute"
	"github.com/chocolat0w0/globe-3d-tle/internal/geometry"
	"github.com/chocolat0w0/globe-3d-tle/internal/tle"
)

type offnadirRangeDTO struct {
	MinDeg float64 `json:"minDeg"`
	MaxDeg float64 `json:"maxDeg"`
}

type footprintParamsDTO struct {
	CrossTrackDeg float64            `json:"crossTrackDeg" validate:"gte=0,lt=90"`
	AlongTrackDeg float64            `json:"alongTrackDeg" validate:"gte=0,lt=90"`
	Ranges        []offnadirRangeDTO `json:"ranges" validate:"required,min=1"`
	Subdivisions  int                `json:"subdivisions" validate:"gte=0,lte=64"`
}

type swathParamsDTO struct {
	Ranges       []offnadirRangeDTO `json:"ranges" validate:"required,min=1"`
	Subdivisions int                `json:"subdivisions" validate:"gte=0,lte=1024"`
}

type outputsDTO struct {
	Orbit     bool `json:"orbit"`
	Footprint bool `json:"footprint"`
	Swath     bool `json:"swath"`
}

type computeRequestDTO struct {
	RequestID     string              `json:"requestId"`
	TargetID      string              `json:"targetId" validate:"required"`
	Line1         string              `json:"line1"`
	Line2         string              `json:"line2"`
	WindowStartMs int64               `json:"windowStartMs"`
	DurationMs    int64               `json:"durationMs" validate:"gte=0"`
	StepSec       float64             `json:"stepSec" validate:"required,gt=0"`
	Outputs       outputsDTO          `json:"outputs"`
	Footprint     *footprintParamsDTO `json:"footprintParams"`
	Swath         *swathParamsDTO     `json:"swathParams"`
}

type orbitDTO struct {
	Times     []float64 `json:"times"`
	Positions []float64 `json:"positions"`
}

type ringsDTO struct {
	Vertices  []float64 `json:"vertices"`
	Offsets   []uint32  `json:"offsets"`
	Counts    []uint32  `json:"counts"`
	TimeSizes []uint32  `json:"timeSizes,omitempty"`
	Times     []float64 `json:"times,omitempty"`
}

type computeResponseDTO struct {
	RequestID     string    `json:"requestId"`
	TargetID      string    `json:"targetId"`
	WindowStartMs int64     `json:"windowStartMs"`
	StepSec       float64   `json:"stepSec"`
	Orbit         *orbitDTO `json:"orbit,omitempty"`
	Footprint     *ringsDTO `json:"footprint,omitempty"`
	Swath         *ringsDTO `json:"swath,omitempty"`
}

type errorDTO struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	var dto computeRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	if err := s.validate.Struct(dto); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", fieldErrors(err))
		return
	}

	pair, status, err := s.resolvePair(r, dto)
	if err != nil {
		writeError(w, status, err.Error(), nil)
		return
	}

	req := compute.Request{
		RequestID:     dto.RequestID,
		TargetID:      dto.TargetID,
		Pair:          pair,
		WindowStartMs: dto.WindowStartMs,
		DurationMs:    dto.DurationMs,
		StepSec:       dto.StepSec,
		Outputs: compute.OutputsWanted{
			Orbit:     dto.Outputs.Orbit,
			Footprint: dto.Outputs.Footprint,
			Swath:     dto.Outputs.Swath,
		},
	}
	if dto.Footprint != nil {
		p := toFootprintParams(*dto.Footprint)
		req.FootprintParams = &p
	}
	if dto.Swath != nil {
		p := toSwathParams(*dto.Swath)
		req.SwathParams = &p
	}

	// Off-nadir edits must fail before any work is scheduled so the caller
	// keeps its last valid state.
	if req.Outputs.Footprint && req.FootprintParams != nil {
		if err := geometry.ValidateOffnadirRanges(req.FootprintParams.Ranges); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
	}
	if req.Outputs.Swath && req.SwathParams != nil {
		if err := geometry.ValidateOffnadirRanges(req.SwathParams.Ranges); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
	}

	done := make(chan compute.Result, 1)
	s.sess.Compute(req, func(res compute.Result) { done <- res })

	select {
	case res := <-done:
		if res.Err != nil {
			writeError(w, http.StatusUnprocessableEntity, res.Err.Message, nil)
			return
		}
		writeJSON(w, http.StatusOK, toResponseDTO(res.Response))
	case <-r.Context().Done():
		// Client gone; the pool still completes and caches the result.
	}
}

// resolvePair takes inline element lines when provided, otherwise resolves
// the target through the catalog. Disabled targets are not computable.
func (s *Server) resolvePair(r *http.Request, dto computeRequestDTO) (tle.Pair, int, error) {
	if dto.Line1 != "" || dto.Line2 != "" {
		pair, err := tle.NewPair(dto.Line1, dto.Line2)
		if err != nil {
			return tle.Pair{}, http.StatusBadRequest, err
		}
		return pair, 0, nil
	}

	t, err := s.store.Get(r.Context(), dto.TargetID)
	if errors.Is(err, catalog.ErrNotFound) {
		return tle.Pair{}, http.StatusNotFound, err
	}
	if err != nil {
		return tle.Pair{}, http.StatusInternalServerError, err
	}
	if !t.Enabled {
		return tle.Pair{}, http.StatusConflict, errors.New("target is disabled")
	}
	return t.Pair, 0, nil
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	st := s.sess.CacheStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":        st.Entries,
		"estimatedBytes": st.EstimatedBytes,
		"hits":           st.Hits,
		"misses":         st.Misses,
		"evictions":      st.Evictions,
	})
}

type targetDTO struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name"`
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2" validate:"required"`
	Enabled bool   `json:"enabled"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	out := make([]targetDTO, 0, len(targets))
	for _, t := range targets {
		out = append(out, targetDTO{
			ID: t.ID, Name: t.Name,
			Line1: t.Pair.Line1, Line2: t.Pair.Line2,
			Enabled: t.Enabled,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto targetDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}
	dto.ID = id
	if err := s.validate.Struct(dto); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", fieldErrors(err))
		return
	}

	err := s.store.Put(r.Context(), catalog.Target{
		ID: id, Name: dto.Name,
		Pair:    tle.Pair{Line1: dto.Line1, Line2: dto.Line2},
		Enabled: dto.Enabled,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	// New elements make every cached window for this target stale.
	s.sess.InvalidateTarget(id)
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) handleDeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.store.Delete(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	s.sess.InvalidateTarget(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", nil)
		return
	}

	err := s.store.SetEnabled(r.Context(), id, dto.Enabled)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error(), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	if !dto.Enabled {
		s.sess.InvalidateTarget(id)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": dto.Enabled})
}

func toFootprintParams(dto footprintParamsDTO) geometry.FootprintParams {
	return geometry.FootprintParams{
		CrossTrackDeg: dto.CrossTrackDeg,
		AlongTrackDeg: dto.AlongTrackDeg,
		Ranges:        toRanges(dto.Ranges),
		Subdivisions:  dto.Subdivisions,
	}
}

func toSwathParams(dto swathParamsDTO) geometry.SwathParams {
	return geometry.SwathParams{
		Ranges:       toRanges(dto.Ranges),
		Subdivisions: dto.Subdivisions,
	}
}

func toRanges(dtos []offnadirRangeDTO) []geometry.OffnadirRange {
	out := make([]geometry.OffnadirRange, len(dtos))
	for i, r := range dtos {
		out[i] = geometry.OffnadirRange{MinDeg: r.MinDeg, MaxDeg: r.MaxDeg}
	}
	return out
}

func toResponseDTO(resp *compute.Response) computeResponseDTO {
	out := computeResponseDTO{
		RequestID:     resp.RequestID,
		TargetID:      resp.TargetID,
		WindowStartMs: resp.WindowStartMs,
		StepSec:       resp.StepSec,
	}
	if resp.Orbit != nil {
		out.Orbit = &orbitDTO{Times: resp.Orbit.Times, Positions: resp.Orbit.Positions}
	}
	if resp.Footprint != nil {
		out.Footprint = &ringsDTO{
			Vertices:  resp.Footprint.Rings.Vertices,
			Offsets:   resp.Footprint.Rings.Offsets,
			Counts:    resp.Footprint.Rings.Counts,
			TimeSizes: resp.Footprint.TimeSizes,
			Times:     resp.Footprint.Times,
		}
	}
	if resp.Swath != nil {
		out.Swath = &ringsDTO{
			Vertices: resp.Swath.Rings.Vertices,
			Offsets:  resp.Swath.Rings.Offsets,
			Counts:   resp.Swath.Rings.Counts,
		}
	}
	return out
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	writeJSON(w, status, errorDTO{Error: msg, Fields: fields})
}
