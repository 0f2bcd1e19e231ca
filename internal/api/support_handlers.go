package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/farmerhub/marketplace-api/internal/models"
)

// CreateSupportHandler handles POST /api/support/create
func (a *App) CreateSupportHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SupportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	ticket, err := a.svc.Support.Create(r.Context(), identity(r), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// AskHandler handles POST /api/ai/ask
func (a *App) AskHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	answer, err := a.svc.AI.Ask(r.Context(), req.Query)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// UploadHandler handles POST /api/upload/{kind} with a multipart "file" field
func (a *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		handleError(w, r, badRequest("file is required"))
		return
	}
	defer file.Close()

	result, err := a.svc.Uploads.Upload(r.Context(), mux.Vars(r)["kind"], header.Filename, file)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
