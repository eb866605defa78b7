package handler

import (
	"io"
	"net/http"
	"os"

	"wablast-backend/internal/service"
	"wablast-backend/internal/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

const maxUploadSize = 10 << 20 // 10 MiB

type UploadHandler struct {
	Ingest *service.IngestService
}

func NewUploadHandler(ingest *service.IngestService) *UploadHandler {
	return &UploadHandler{Ingest: ingest}
}

// HandleUpload ingests a tabular file into the named set. The spooled
// temp file is removed on every exit path.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	setName := mux.Vars(r)["setName"]

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "wablast-upload-*.csv")
	if err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			log.Warn().Err(err).Str("path", tmp.Name()).Msg("failed to remove upload temp file")
		}
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		utils.ErrorResponse(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		utils.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	result, err := h.Ingest.Ingest(setName, tmp)
	if err != nil {
		utils.ErrorFromService(w, err)
		return
	}
	utils.SuccessResponse(w, http.StatusOK, result, "Upload processed")
}
