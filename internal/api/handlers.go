package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"huntnav/internal/buildinfo"
	"huntnav/internal/importer"
	"huntnav/internal/metrics"
	"huntnav/internal/model"
	"huntnav/internal/route"
)

// AnonAuthHandler handles POST /v1/auth/anon
func (s *Server) AnonAuthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	// body is optional
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	token, memberID, err := s.Auth.Mint(req.Name)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Mint token failed", err.Error(), r.URL.Path)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "anonymous"
	}
	writeJSON(w, http.StatusCreated, model.AnonSession{Token: token, MemberID: memberID, Name: name})
}

// HuntsHandler handles POST/GET /v1/hunts
func (s *Server) HuntsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var in model.HuntIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if strings.TrimSpace(in.Name) == "" {
			writeProblem(w, http.StatusBadRequest, "Missing name", "hunt name is required", r.URL.Path)
			return
		}
		h, err := s.Store.CreateHunt(r.Context(), in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create hunt failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, h)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListHunts(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List hunts failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// HuntByIDHandler handles everything under /v1/hunts/{id}: the hunt itself,
// waypoints, optimize, join, claims, stats, runs, members, and the SSE
// event stream.
func (s *Server) HuntByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/hunts/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing hunt id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h, err := s.Store.GetHunt(r.Context(), id)
		if err != nil {
			writeStoreErr(w, err, "Get hunt failed", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, h)
		return
	}

	switch parts[1] {
	case "waypoints":
		if len(parts) == 2 && r.Method == http.MethodPost {
			var req struct {
				Waypoints []model.WaypointIn `json:"waypoints"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
				return
			}
			if len(req.Waypoints) == 0 {
				writeProblem(w, http.StatusBadRequest, "Missing waypoints", "", r.URL.Path)
				return
			}
			h, err := s.Store.AddWaypoints(r.Context(), id, req.Waypoints)
			if err != nil {
				writeStoreErr(w, err, "Add waypoints failed", r.URL.Path)
				return
			}
			writeJSON(w, http.StatusOK, h)
			return
		}
		if len(parts) == 3 && parts[2] == "import" && r.Method == http.MethodPost {
			wps, err := importer.ParseCSV(r.Body)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error(), r.URL.Path)
				return
			}
			h, err := s.Store.AddWaypoints(r.Context(), id, wps)
			if err != nil {
				writeStoreErr(w, err, "Add waypoints failed", r.URL.Path)
				return
			}
			writeJSON(w, http.StatusOK, h)
			return
		}
		if len(parts) == 3 && r.Method == http.MethodDelete {
			h, err := s.Store.RemoveWaypoint(r.Context(), id, parts[2])
			if err != nil {
				writeStoreErr(w, err, "Remove waypoint failed", r.URL.Path)
				return
			}
			writeJSON(w, http.StatusOK, h)
			return
		}
	case "optimize":
		if len(parts) == 2 && r.Method == http.MethodPost {
			s.optimizeHunt(w, r, id)
			return
		}
	case "join":
		if len(parts) == 2 && r.Method == http.MethodPost {
			var req struct {
				Name string `json:"name"`
			}
			if r.Body != nil {
				_ = json.NewDecoder(r.Body).Decode(&req)
			}
			pr := s.getPrincipal(r)
			name := strings.TrimSpace(req.Name)
			if name == "" {
				name = pr.Name
			}
			m, err := s.Store.JoinHunt(r.Context(), id, model.Member{ID: pr.MemberID, Name: name})
			if err != nil {
				writeStoreErr(w, err, "Join hunt failed", r.URL.Path)
				return
			}
			s.publish(r.Context(), id, "member.joined", map[string]any{
				"huntId": id, "memberId": m.ID, "name": m.Name,
				"ts": time.Now().UTC().Format(time.RFC3339),
			})
			writeJSON(w, http.StatusOK, m)
			return
		}
	case "claims":
		if len(parts) == 2 && r.Method == http.MethodPost {
			var req model.ClaimRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
				return
			}
			if req.WaypointID == "" {
				writeProblem(w, http.StatusBadRequest, "Missing waypointId", "", r.URL.Path)
				return
			}
			pr := s.getPrincipal(r)
			res, err := s.Store.ClaimWaypoint(r.Context(), id, req.WaypointID, pr.MemberID)
			if err != nil {
				writeStoreErr(w, err, "Claim failed", r.URL.Path)
				return
			}
			if !res.AlreadyFound {
				s.publish(r.Context(), id, "waypoint.claimed", map[string]any{
					"huntId": id, "waypointId": req.WaypointID, "foundBy": pr.MemberID,
					"cursor": res.Hunt.Cursor, "ts": time.Now().UTC().Format(time.RFC3339),
				})
				if res.Completed {
					s.publish(r.Context(), id, "hunt.completed", map[string]any{
						"huntId": id, "waypoints": len(res.Hunt.Waypoints),
						"ts": time.Now().UTC().Format(time.RFC3339),
					})
				}
			}
			writeJSON(w, http.StatusOK, res)
			return
		}
	case "stats":
		if len(parts) == 2 && r.Method == http.MethodGet {
			s.huntStats(w, r, id)
			return
		}
	case "runs":
		if len(parts) == 2 && r.Method == http.MethodGet {
			limit := 20
			if v := r.URL.Query().Get("limit"); v != "" {
				fmt.Sscanf(v, "%d", &limit)
			}
			items, err := s.Store.ListOptimizeRuns(r.Context(), id, limit)
			if err != nil {
				writeStoreErr(w, err, "List runs failed", r.URL.Path)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
			return
		}
	case "members":
		if len(parts) == 2 && r.Method == http.MethodGet {
			items, err := s.Store.ListMembers(r.Context(), id)
			if err != nil {
				writeStoreErr(w, err, "List members failed", r.URL.Path)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": items})
			return
		}
	case "events":
		if len(parts) == 3 && parts[2] == "stream" {
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			s.huntEventsSSE(w, r, id)
			return
		}
	}
	writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
}

// optimizeHunt runs the engine over the hunt's waypoints, persists the
// resulting route, records the run, and announces route.updated.
func (s *Server) optimizeHunt(w http.ResponseWriter, r *http.Request, id string) {
	var req model.OptimizeRequest
	if r.Body != nil {
		// body is optional; defaults apply
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	h, err := s.Store.GetHunt(r.Context(), id)
	if err != nil {
		writeStoreErr(w, err, "Get hunt failed", r.URL.Path)
		return
	}
	opts, policy, err := s.engineOptions(req.OptimizeOptions, h.Waypoints)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	start := time.Now()
	seq, err := s.Engine.Optimize(engineWaypoints(h.Waypoints), opts)
	durMs := time.Since(start).Milliseconds()
	if err != nil {
		metrics.OptimizeRuns.WithLabelValues(policy, "error").Inc()
		if errors.Is(err, route.ErrInvalidWaypoint) {
			writeProblem(w, http.StatusBadRequest, "Invalid waypoints", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizeRuns.WithLabelValues(policy, "ok").Inc()
	metrics.OptimizeDuration.WithLabelValues(policy).Observe(float64(durMs))

	sum := route.Analyze(seq)
	msum := model.RouteSummary{TotalDistance: sum.TotalDistance, MapCount: sum.MapCount, MapJumps: sum.MapJumps}
	order := make([]string, len(seq))
	for i, wp := range seq {
		order[i] = wp.ID
	}
	h2, err := s.Store.SaveRoute(r.Context(), id, order, msum)
	if err != nil {
		writeStoreErr(w, err, "Save route failed", r.URL.Path)
		return
	}
	_ = s.Store.SaveOptimizeRun(r.Context(), model.OptimizeRun{
		HuntID: id, Policy: policy, TwoOpt: opts.TwoOpt, Waypoints: len(seq),
		TotalDistance: sum.TotalDistance, MapJumps: sum.MapJumps, DurationMs: durMs,
		TS: time.Now().UTC().Format(time.RFC3339),
	})
	s.publish(r.Context(), id, "route.updated", map[string]any{
		"huntId": id, "route": order, "summary": msum, "version": h2.Version,
		"ts": time.Now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, model.OptimizeResponse{
		HuntID:     id,
		Route:      modelFromEngine(seq, h2.Waypoints),
		Summary:    msum,
		Policy:     policy,
		DurationMs: durMs,
		Version:    h2.Version,
	})
}

// OptimizeHandler handles POST /v1/optimize: stateless ordering of the
// request's own waypoints, nothing persisted.
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateOptimizeRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	wps := req.Waypoints
	for i := range wps {
		if wps[i].ID == "" {
			wps[i].ID = fmt.Sprintf("wp_%d", i+1)
		}
	}
	opts, policy, err := s.engineOptions(req.OptimizeOptions, wps)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid optimize request", err.Error(), r.URL.Path)
		return
	}
	if req.Start != nil {
		sw := route.Waypoint{ID: req.Start.ID, MapID: req.Start.MapID, Pos: route.Point{X: req.Start.X, Y: req.Start.Y}}
		opts.Start = &sw
	}
	start := time.Now()
	seq, err := s.Engine.Optimize(engineWaypoints(wps), opts)
	durMs := time.Since(start).Milliseconds()
	if err != nil {
		metrics.OptimizeRuns.WithLabelValues(policy, "error").Inc()
		if errors.Is(err, route.ErrInvalidWaypoint) {
			writeProblem(w, http.StatusBadRequest, "Invalid waypoints", err.Error(), r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Optimize failed", err.Error(), r.URL.Path)
		return
	}
	metrics.OptimizeRuns.WithLabelValues(policy, "ok").Inc()
	metrics.OptimizeDuration.WithLabelValues(policy).Observe(float64(durMs))
	sum := route.Analyze(seq)
	writeJSON(w, http.StatusOK, model.OptimizeResponse{
		Route:      modelFromEngine(seq, wps),
		Summary:    model.RouteSummary{TotalDistance: sum.TotalDistance, MapCount: sum.MapCount, MapJumps: sum.MapJumps},
		Policy:     policy,
		DurationMs: durMs,
	})
}

// RegionsHandler handles GET /v1/regions
func (s *Server) RegionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": s.Engine.Catalog().Regions()})
}

func (s *Server) huntStats(w http.ResponseWriter, r *http.Request, id string) {
	h, err := s.Store.GetHunt(r.Context(), id)
	if err != nil {
		writeStoreErr(w, err, "Get hunt failed", r.URL.Path)
		return
	}
	cat := s.Engine.Catalog()
	found := 0
	order := []int{}
	perMap := map[int]*model.MapStats{}
	for _, wp := range h.Waypoints {
		ms := perMap[wp.MapID]
		if ms == nil {
			region, _ := cat.Region(wp.MapID)
			ms = &model.MapStats{MapID: wp.MapID, Region: region}
			perMap[wp.MapID] = ms
			order = append(order, wp.MapID)
		}
		ms.Count++
		if wp.Found {
			ms.Found++
			found++
		}
	}
	stats := model.HuntStats{HuntID: h.ID, Waypoints: len(h.Waypoints), Found: found, Summary: h.Summary}
	for _, mid := range order {
		stats.PerMap = append(stats.PerMap, *perMap[mid])
	}
	if runs, err := s.Store.ListOptimizeRuns(r.Context(), id, 5); err == nil {
		stats.Runs = runs
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) huntEventsSSE(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := s.Store.GetHunt(r.Context(), id); err != nil {
		writeStoreErr(w, err, "Get hunt failed", r.URL.Path)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	ch := s.Broker.Subscribe(id)
	defer s.Broker.Unsubscribe(id, ch)

	writeEvent := func(evt Event) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", string(b))
	}
	// replay what the caller just missed, then go live
	for _, evt := range s.Recent.Recent(id) {
		writeEvent(evt)
	}
	fmt.Fprintf(w, "event: heartbeat\n")
	fmt.Fprintf(w, "data: {\"huntId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			writeEvent(evt)
			flusher.Flush()
		case <-time.After(15 * time.Second):
			fmt.Fprintf(w, "event: heartbeat\n")
			fmt.Fprintf(w, "data: {\"huntId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

// WebhooksHandler handles POST/GET /v1/webhooks (admin)
func (s *Server) WebhooksHandler(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeProblem(w, http.StatusBadRequest, "Missing url", "", r.URL.Path)
			return
		}
		if req.EventType == "" {
			req.EventType = "*"
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListSubscriptions(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// WebhookByIDHandler handles DELETE /v1/webhooks/{id} and
// GET /v1/webhooks/deliveries (admin)
func (s *Server) WebhookByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/webhooks/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "admin required", r.URL.Path)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/v1/webhooks/")
	if rest == "deliveries" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		status := r.URL.Query().Get("status")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListWebhookDeliveries(r.Context(), status, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.Store.DeleteSubscription(r.Context(), rest); err != nil {
		writeStoreErr(w, err, "Delete subscription failed", r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// engineOptions maps request options onto engine options, resolving the
// start waypoint against the given set and falling back to config defaults.
func (s *Server) engineOptions(o model.OptimizeOptions, wps []model.Waypoint) (route.Options, string, error) {
	opts := route.DefaultOptions()
	policy := o.Policy
	if policy == "" {
		policy = s.Cfg.MapOrder
	}
	if policy == "centroids" {
		opts.MapOrder = route.MapOrderCentroids
	} else {
		policy = "regions"
		opts.MapOrder = route.MapOrderRegions
	}
	if o.UseMapGrouping != nil {
		opts.GroupByMap = *o.UseMapGrouping
	}
	if o.Use2Opt != nil {
		opts.TwoOpt = *o.Use2Opt
	}
	if o.MaxIterations > 0 {
		opts.MaxIterations = o.MaxIterations
	} else if s.Cfg.TwoOptIters > 0 {
		opts.MaxIterations = s.Cfg.TwoOptIters
	}
	if o.StartWaypointID != "" {
		found := false
		for _, wp := range wps {
			if wp.ID == o.StartWaypointID {
				sw := route.Waypoint{ID: wp.ID, MapID: wp.MapID, Pos: route.Point{X: wp.X, Y: wp.Y}}
				opts.Start = &sw
				found = true
				break
			}
		}
		if !found {
			return opts, policy, fmt.Errorf("startWaypointId %q not in waypoint set", o.StartWaypointID)
		}
	}
	return opts, policy, nil
}

func engineWaypoints(wps []model.Waypoint) []route.Waypoint {
	out := make([]route.Waypoint, len(wps))
	for i, wp := range wps {
		out[i] = route.Waypoint{ID: wp.ID, MapID: wp.MapID, Pos: route.Point{X: wp.X, Y: wp.Y}}
	}
	return out
}

// modelFromEngine maps an engine sequence back onto wire waypoints, keeping
// labels and found flags from the source set.
func modelFromEngine(seq []route.Waypoint, src []model.Waypoint) []model.Waypoint {
	byID := make(map[string]model.Waypoint, len(src))
	for _, wp := range src {
		byID[wp.ID] = wp
	}
	out := make([]model.Waypoint, len(seq))
	for i, ew := range seq {
		if mw, ok := byID[ew.ID]; ok {
			out[i] = mw
			continue
		}
		out[i] = model.Waypoint{ID: ew.ID, MapID: ew.MapID, X: ew.Pos.X, Y: ew.Pos.Y}
	}
	return out
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using the Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// VersionHandler handles GET /version
func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}
