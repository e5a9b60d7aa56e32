package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/theirongolddev/finburn/internal/currency"
	"github.com/theirongolddev/finburn/internal/model"
	"github.com/theirongolddev/finburn/internal/pipeline"
)

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	r := httprouter.New()
	r.GET("/healthz", s.handleHealth)
	r.GET("/v1/status", s.handleStatus)
	r.GET("/v1/records", s.handleRecords)
	r.GET("/v1/events", s.handleEvents)
	r.GET("/v1/stream", s.handleStream)
	r.POST("/v1/show", s.handleShow)
	r.POST("/v1/hide", s.handleHide)
	r.PUT("/v1/prefs", s.handlePrefs)
	r.POST("/v1/refresh", s.handleRefresh)
	r.Handler(http.MethodGet, "/metrics", s.metrics.handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

// handleRecords serves the latest pass, running one first if the
// surface has never been shown.
func (s *Service) handleRecords(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	res, ok := s.engine.Last()
	if !ok {
		var err error
		res, err = s.engine.RunPipeline(r.Context())
		s.apply(res, err, EventReportDelta)
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, recordsFromResult(res))
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

// handleShow pins the surface visible, which runs a pass at once.
func (s *Service) handleShow(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.setPinned(true)
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

// handleHide unpins the surface. It stays visible while stream clients
// are connected.
func (s *Service) handleHide(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.setPinned(false)
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handlePrefs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var upd PrefsUpdate
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decoding prefs: %w", err))
		return
	}

	res, err := s.applyPrefs(r.Context(), upd)
	switch {
	case errors.Is(err, pipeline.ErrInvalidSortKey), errors.Is(err, pipeline.ErrInvalidCurrency):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.apply(res, err, EventPrefs)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if res.RunID != "" {
		s.apply(res, nil, EventPrefs)
	}
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

// applyPrefs validates every field, then applies them together with a
// single pass.
func (s *Service) applyPrefs(ctx context.Context, upd PrefsUpdate) (pipeline.Result, error) {
	var (
		code currency.Code
		key  model.SortKey
	)
	if upd.Currency != nil {
		c, ok := currency.ParseCode(*upd.Currency)
		if !ok {
			return pipeline.Result{}, fmt.Errorf("%w: %q", pipeline.ErrInvalidCurrency, *upd.Currency)
		}
		code = c
	}
	if upd.Sort != nil {
		key = model.SortKey(strings.TrimSpace(*upd.Sort))
		if !key.Valid() {
			return pipeline.Result{}, fmt.Errorf("%w: %q", pipeline.ErrInvalidSortKey, *upd.Sort)
		}
	}

	if upd.Currency == nil && upd.Sort == nil && upd.ExcludeFree == nil {
		return pipeline.Result{}, nil
	}
	return s.engine.UpdatePreferences(ctx, func(p *model.Preferences) {
		if upd.Currency != nil {
			p.Currency = code
		}
		if upd.Sort != nil {
			p.Sort = key
		}
		if upd.ExcludeFree != nil {
			p.ExcludeFree = *upd.ExcludeFree
		}
	})
}

func (s *Service) handleRefresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		res pipeline.Result
		err error
	)
	if s.rates != nil {
		st := s.rates.Refresh(r.Context())
		if st.OK {
			s.metrics.rateRefresh.WithLabelValues("ok").Inc()
		} else {
			s.metrics.rateRefresh.WithLabelValues("failed").Inc()
		}
	}
	res, err = s.engine.RunPipeline(r.Context())
	s.apply(res, err, EventReportDelta)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

// handleStream is an SSE feed. Every connected client counts as a viewer,
// so the surface is visible while at least one is attached.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
