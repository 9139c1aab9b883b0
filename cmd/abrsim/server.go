package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Eyevinn/abrselect/internal"
)

// newRouter exposes Prometheus metrics and a small runtime control surface
// so a running session can be poked from curl.
func newRouter(engine *internal.Engine, metrics *internal.Metrics, device internal.DeviceState) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/estimates", func(w http.ResponseWriter, _ *http.Request) {
		cells := engine.AverageBitrates()
		out := make(map[string]float64, len(cells))
		for mt, cell := range cells {
			out[string(mt)] = cell.Get()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})

	r.Route("/controls", func(r chi.Router) {
		r.Post("/bitrate/{mediaType}", func(w http.ResponseWriter, req *http.Request) {
			bps, err := strconv.Atoi(req.URL.Query().Get("bps"))
			if err != nil {
				http.Error(w, "bps must be an integer", http.StatusBadRequest)
				return
			}
			switch internal.MediaType(chi.URLParam(req, "mediaType")) {
			case internal.MediaTypeAudio:
				engine.SetAudioBitrate(bps)
			case internal.MediaTypeVideo:
				engine.SetVideoBitrate(bps)
			default:
				http.NotFound(w, req)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/maxbitrate/{mediaType}", func(w http.ResponseWriter, req *http.Request) {
			bps, err := strconv.Atoi(req.URL.Query().Get("bps"))
			if err != nil {
				http.Error(w, "bps must be an integer", http.StatusBadRequest)
				return
			}
			switch internal.MediaType(chi.URLParam(req, "mediaType")) {
			case internal.MediaTypeAudio:
				engine.SetAudioMaxBitrate(bps)
			case internal.MediaTypeVideo:
				engine.SetVideoMaxBitrate(bps)
			default:
				http.NotFound(w, req)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/buffersize/{mediaType}", func(w http.ResponseWriter, req *http.Request) {
			seconds, err := strconv.ParseFloat(req.URL.Query().Get("seconds"), 64)
			if err != nil {
				http.Error(w, "seconds must be a number", http.StatusBadRequest)
				return
			}
			switch internal.MediaType(chi.URLParam(req, "mediaType")) {
			case internal.MediaTypeAudio:
				engine.SetAudioBufferSize(seconds)
			case internal.MediaTypeVideo:
				engine.SetVideoBufferSize(seconds)
			case internal.MediaTypeText:
				engine.SetTextBufferSize(seconds)
			default:
				http.NotFound(w, req)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/audiotrack", func(w http.ResponseWriter, req *http.Request) {
			lang := req.URL.Query().Get("lang")
			if lang == "" {
				http.Error(w, "lang is required", http.StatusBadRequest)
				return
			}
			engine.SetAudioTrack(internal.AudioTrackPreference{
				Language:         lang,
				AudioDescription: req.URL.Query().Get("ad") == "true",
			})
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/texttrack", func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Query().Get("off") == "true" {
				engine.SetTextTrack(nil)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			lang := req.URL.Query().Get("lang")
			if lang == "" {
				http.Error(w, "lang is required (or off=true)", http.StatusBadRequest)
				return
			}
			engine.SetTextTrack(&internal.TextTrackPreference{
				Language:      lang,
				ClosedCaption: req.URL.Query().Get("cc") == "true",
			})
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/width/{pixels}", func(w http.ResponseWriter, req *http.Request) {
			pixels, err := strconv.Atoi(chi.URLParam(req, "pixels"))
			if err != nil || pixels < 0 {
				http.Error(w, "pixels must be a non-negative integer", http.StatusBadRequest)
				return
			}
			device.Width.Set(pixels)
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/hidden/{state}", func(w http.ResponseWriter, req *http.Request) {
			state, err := strconv.ParseBool(chi.URLParam(req, "state"))
			if err != nil {
				http.Error(w, "state must be true or false", http.StatusBadRequest)
				return
			}
			device.Hidden.Set(state)
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}
