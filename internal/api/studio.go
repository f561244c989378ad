package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/genstudio/internal/genai"
	"github.com/digkill/genstudio/internal/service"
)

type generateImagesRequest struct {
	Prompt      string `json:"prompt"`
	Count       int    `json:"count"`
	AspectRatio string `json:"aspect_ratio"`
}

func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	var req generateImagesRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	item, err := s.Studio.GenerateImages(r.Context(), currentUser(r).ID, service.ImageRequest{
		Prompt:      req.Prompt,
		Count:       req.Count,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type enhanceRequest struct {
	ImageURL string `json:"image_url"`
	Prompt   string `json:"prompt"`
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	item, err := s.Studio.Enhance(r.Context(), currentUser(r).ID, req.ImageURL, req.Prompt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleEdit takes a multipart form with an "image" file and a "prompt" field.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "image too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart form"})
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "image file required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "read image"})
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "file is not an image"})
		return
	}

	item, err := s.Studio.Edit(r.Context(), currentUser(r).ID, data, contentType, r.FormValue("prompt"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

type videoRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleStartVideo(w http.ResponseWriter, r *http.Request) {
	var req videoRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	item, err := s.Studio.StartVideo(r.Context(), currentUser(r).ID, req.Prompt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (s *Server) handlePollVideo(w http.ResponseWriter, r *http.Request) {
	item, err := s.Studio.PollVideo(r.Context(), currentUser(r).ID, chi.URLParam(r, "operationId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type chatRequest struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Mode      genai.ChatMode `json:"mode"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		badJSON(w)
		return
	}
	exchange, err := s.Studio.SendChat(r.Context(), currentUser(r).ID, service.ChatInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Mode:      req.Mode,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exchange)
}

func (s *Server) handleImageHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.Studio.ImageHistory(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := s.Studio.DeleteImage(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVideoHistory(w http.ResponseWriter, r *http.Request) {
	items, err := s.Studio.VideoHistory(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	if err := s.Studio.DeleteVideo(r.Context(), currentUser(r).ID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Studio.ChatHistory(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleDeleteChatSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Studio.DeleteChatSession(r.Context(), currentUser(r).ID, chi.URLParam(r, "sessionId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
