package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"personalpage/internal/protocol"
	"personalpage/internal/transport/web"
)

func (rt *runtime) routes() *http.ServeMux {
	mux := http.NewServeMux()
	rt.site.Register(mux)

	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, _, err := rt.store.Get(ctx, rt.cfg.Keys.Posts); err != nil {
			http.Error(rw, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP personalpage_store_info Configured store backend.\n")
		fmt.Fprintf(rw, "# TYPE personalpage_store_info gauge\n")
		fmt.Fprintf(rw, "personalpage_store_info{backend=%q} 1\n", rt.cfg.Store.Backend)

		rt.site.WriteMetrics(rw)

		fmt.Fprintf(rw, "# HELP personalpage_ws_subscribers Open live-update connections.\n")
		fmt.Fprintf(rw, "# TYPE personalpage_ws_subscribers gauge\n")
		fmt.Fprintf(rw, "personalpage_ws_subscribers %d\n", rt.hub.Subscribers())

		fmt.Fprintf(rw, "# HELP personalpage_ws_notices_total Change notices by outcome.\n")
		fmt.Fprintf(rw, "# TYPE personalpage_ws_notices_total counter\n")
		fmt.Fprintf(rw, "personalpage_ws_notices_total{outcome=%q} %d\n", "published", rt.hub.Published())
		fmt.Fprintf(rw, "personalpage_ws_notices_total{outcome=%q} %d\n", "dropped", rt.hub.Dropped())

		bs := rt.backups.Stats()
		fmt.Fprintf(rw, "# HELP personalpage_backups_total Backups by outcome.\n")
		fmt.Fprintf(rw, "# TYPE personalpage_backups_total counter\n")
		fmt.Fprintf(rw, "personalpage_backups_total{outcome=%q} %d\n", "ok", bs.Total)
		fmt.Fprintf(rw, "personalpage_backups_total{outcome=%q} %d\n", "failed", bs.Failures)

		fmt.Fprintf(rw, "# HELP personalpage_backup_last_unix Unix time of the last successful backup.\n")
		fmt.Fprintf(rw, "# TYPE personalpage_backup_last_unix gauge\n")
		fmt.Fprintf(rw, "personalpage_backup_last_unix %d\n", bs.LastUnix)
	})

	if rt.adminHTTP {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/backup", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				web.WriteError(rw, http.StatusForbidden, protocol.ErrForbidden, "forbidden")
				return
			}
			ctx2, cancel2 := context.WithTimeout(r.Context(), 10*time.Second)
			defer cancel2()
			res, err := rt.backups.Run(ctx2)
			if err != nil {
				rt.logger.Printf("admin backup: %v", err)
				web.WriteError(rw, http.StatusServiceUnavailable, protocol.ErrStorage, err.Error())
				return
			}
			web.WriteJSON(rw, http.StatusOK, map[string]any{
				"ok":       true,
				"path":     res.Path,
				"archived": res.Archived,
				"pruned":   res.Pruned,
			})
		})
	}
	if rt.cfg.LiveUpdates {
		mux.HandleFunc("GET /v1/ws", rt.hub.Handler())
	}
	return mux
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
