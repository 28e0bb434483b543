package api

import (
	"errors"
	"net/http"

	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/config"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/controller"
	"github.com/LiquenOpS/Glimmer-NeoPixelController/internal/effect"
)

type effectRequest struct {
	Effect *string `json:"effect"`
}

type statusResponse struct {
	controller.Status
	Config config.Config `json:"config"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, cmd controller.Command) (controller.Result, bool) {
	if !s.ctrl.Running() {
		writeError(w, http.StatusServiceUnavailable, controller.ErrStopped)
		return controller.Result{}, false
	}
	res, err := s.ctrl.Submit(r.Context(), cmd)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, controller.ErrStopped) {
			code = http.StatusServiceUnavailable
		}
		writeError(w, code, err)
		return controller.Result{}, false
	}
	return res, true
}

func (s *Server) effectFromBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req effectRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return "", false
	}
	if req.Effect == nil {
		writeError(w, http.StatusBadRequest, errors.New("missing 'effect' field"))
		return "", false
	}
	return *req.Effect, true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: s.ctrl.Status(), Config: s.ctrl.Config()})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Config())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	if err := decodeBody(w, r, &doc); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, ok := s.submit(w, r, controller.UpdateConfig(doc))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": res.Config})
}

func (s *Server) handleSetEffect(w http.ResponseWriter, r *http.Request) {
	name, ok := s.effectFromBody(w, r)
	if !ok {
		return
	}
	res, ok := s.submit(w, r, controller.SetEffect(name, true))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"effect":        res.Status.CurrentEffect,
		"playlist_mode": res.Status.PlaylistMode,
	})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	res, ok := s.submit(w, r, controller.ResumePlaylist())
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"playlist_mode":  res.Status.PlaylistMode,
		"current_effect": res.Status.CurrentEffect,
	})
}

func (s *Server) handlePlaylistAdd(w http.ResponseWriter, r *http.Request) {
	s.editPlaylist(w, r, controller.AddToPlaylist)
}

func (s *Server) handlePlaylistRemove(w http.ResponseWriter, r *http.Request) {
	s.editPlaylist(w, r, controller.RemoveFromPlaylist)
}

func (s *Server) editPlaylist(w http.ResponseWriter, r *http.Request, build func(string) controller.Command) {
	name, ok := s.effectFromBody(w, r)
	if !ok {
		return
	}
	res, ok := s.submit(w, r, build(name))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"playlist": res.Config.Runtime.EffectsPlaylist,
	})
}

func (s *Server) handleEffects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"effects": effect.Catalog()})
}
