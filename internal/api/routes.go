// 包 api：集中注册 HTTP API 路由以解耦主入口
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sealevel/internal/dataset"
	"sealevel/internal/geolocate"
	"sealevel/internal/logger"
	"sealevel/internal/middleware"
	"sealevel/internal/region"
	"sealevel/internal/store"
	"sealevel/internal/tile"
	"strconv"
)

// Deps：路由依赖；Locator、History、Admin 可为空，对应接口返回 503/501/403
type Deps struct {
	Sync       *dataset.Synchronizer
	Resolver   *tile.Resolver
	Locator    *geolocate.Locator
	History    store.History
	AdminToken string
	AdminAllow *middleware.AllowList
	Logger     *slog.Logger
}

type handlers struct {
	Deps
	log *slog.Logger
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	h := &handlers{Deps: d, log: logger.Component(d.Logger, "api")}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /regions", h.regions)
	mux.HandleFunc("GET /regions/nearest", h.nearest)
	mux.HandleFunc("POST /region", h.selectRegion)
	mux.HandleFunc("GET /status", h.status)
	mux.HandleFunc("GET /status/stream", h.statusStream)
	mux.HandleFunc("DELETE /status/error", h.dismissError)
	mux.HandleFunc("GET /tiles/{z}/{x}/{y}", h.tile)
	mux.HandleFunc("GET /history", h.history)

	admin := http.Handler(http.HandlerFunc(h.reloadIndex))
	if d.AdminAllow != nil {
		admin = d.AdminAllow.Wrap(admin)
	}
	mux.Handle("POST /admin/reload-index", admin)
	return mux
}

type regionView struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	LatDelta    float64 `json:"lat_delta"`
	LonDelta    float64 `json:"lon_delta"`
	PackageSize int64   `json:"package_size"`
	Available   bool    `json:"available"`
	Current     bool    `json:"current"`
}

func (h *handlers) regions(w http.ResponseWriter, r *http.Request) {
	cur := h.Sync.CurrentID()
	all := h.Sync.Catalog().All()
	out := make([]regionView, 0, len(all))
	for _, rg := range all {
		out = append(out, regionView{
			ID:          rg.ID,
			Label:       rg.Label,
			Lat:         rg.Center.Lat(),
			Lon:         rg.Center.Lon(),
			LatDelta:    rg.LatDelta,
			LonDelta:    rg.LonDelta,
			PackageSize: rg.PackageSize,
			Available:   h.Sync.Available(rg.ID),
			Current:     rg.ID == cur,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) nearest(w http.ResponseWriter, r *http.Request) {
	if h.Locator == nil {
		writeError(w, http.StatusServiceUnavailable, "geoip database not configured")
		return
	}
	ip := getClientIP(r)
	s, err := h.Locator.Locate(ip)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s)
	case errors.Is(err, geolocate.ErrBadIP):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Debug("nearest_region_miss", "ip", ip, "err", err)
		writeError(w, http.StatusNotFound, "no region for ip")
	}
}

type selectBody struct {
	ID string `json:"id"`
}

func (h *handlers) selectRegion(w http.ResponseWriter, r *http.Request) {
	var body selectBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&body); err != nil || body.ID == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"id\": \"<region>\"}")
		return
	}
	started, err := h.Sync.Select(body.ID)
	switch {
	case errors.Is(err, region.ErrUnknown):
		writeError(w, http.StatusNotFound, "unknown region "+body.ID)
	case errors.Is(err, dataset.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	case started:
		writeJSON(w, http.StatusAccepted, h.Sync.Status())
	default:
		writeJSON(w, http.StatusOK, h.Sync.Status())
	}
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Sync.Status())
}

// statusStream：server-sent events，每个快照一条 data 行
func (h *handlers) statusStream(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ch, cancel := h.Sync.Subscribe()
	defer cancel()
	w.Header().Set("content-type", "text/event-stream")
	w.Header().Set("cache-control", "no-store")
	w.Header().Set("connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fl.Flush()
	for {
		select {
		case <-r.Context().Done():
			return
		case st, open := <-ch:
			if !open {
				return
			}
			b, _ := json.Marshal(st)
			if _, err := w.Write([]byte("data: " + string(b) + "\n\n")); err != nil {
				return
			}
			fl.Flush()
		}
	}
}

func (h *handlers) dismissError(w http.ResponseWriter, r *http.Request) {
	h.Sync.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		writeError(w, http.StatusNotImplemented, "history requires the postgres store")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := h.History.RecentSyncs(r.Context(), limit)
	if err != nil {
		h.log.Error("history_query_error", "err", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	if recs == nil {
		recs = []store.SyncRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// reloadIndex：离线重建索引后热加载；需 x-admin-token
func (h *handlers) reloadIndex(w http.ResponseWriter, r *http.Request) {
	t := r.Header.Get("x-admin-token")
	if h.AdminToken == "" || t != h.AdminToken {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	swapped, err := h.Sync.ReloadIndex()
	if errors.Is(err, dataset.ErrNoCurrent) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	resp := map[string]any{"swapped": swapped, "region": h.Sync.CurrentID(), "records": h.Sync.Index().Index().Len()}
	if err != nil {
		resp["error"] = err.Error()
	}
	code := http.StatusOK
	if !swapped {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
