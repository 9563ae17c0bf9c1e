package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/picsync/internal/common"
	"github.com/dmitrijs2005/picsync/internal/logging"
	"github.com/dmitrijs2005/picsync/internal/server/services"
)

// maxUploadMemory bounds how much of a multipart body stays in RAM; the
// rest spools to disk.
const maxUploadMemory = 32 << 20

// Handler implements all API endpoints.
type Handler struct {
	users  *services.UserService
	assets *services.AssetService
	logger logging.Logger
}

func NewHandler(users *services.UserService, assets *services.AssetService, logger logging.Logger) *Handler {
	return &Handler{users: users, assets: assets, logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if _, err := h.users.Register(r.Context(), req.Username, req.Password); err != nil {
		if errors.Is(err, common.ErrorDuplicateLogin) {
			writeError(w, http.StatusBadRequest, "login already taken")
			return
		}
		h.logger.Error(r.Context(), "registration failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type existsRequest struct {
	Checksum string `json:"checksum"`
}

type existsResponse struct {
	RemoteID  string     `json:"remote_id"`
	DeletedAt *time.Time `json:"deleted_at"`
}

// Exists answers a checksum existence lookup. An unknown checksum yields an
// empty remote_id, never a 404; absence is an answer, not an error.
func (h *Handler) Exists(w http.ResponseWriter, r *http.Request) {
	var req existsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Checksum == "" {
		writeError(w, http.StatusBadRequest, "checksum is required")
		return
	}

	asset, err := h.assets.CheckExists(r.Context(), UserIDFromContext(r.Context()), req.Checksum)
	if err != nil {
		h.logger.Error(r.Context(), "existence check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := existsResponse{}
	if asset != nil {
		resp.RemoteID = asset.ID
		resp.DeletedAt = asset.DeletedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

type uploadResponse struct {
	RemoteID  string `json:"remote_id"`
	Duplicate bool   `json:"duplicate"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, err := uploadFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()
	if up.FileName == "" {
		up.FileName = header.Filename
	}

	asset, duplicate, err := h.assets.Upload(r.Context(), UserIDFromContext(r.Context()), up, file)
	if err != nil {
		if errors.Is(err, common.ErrorChecksumMismatch) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error(r.Context(), "upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, uploadResponse{RemoteID: asset.ID, Duplicate: duplicate})
}

func uploadFromForm(r *http.Request) (*services.AssetUpload, error) {
	up := &services.AssetUpload{
		Checksum: r.FormValue("checksum"),
		Kind:     r.FormValue("kind"),
		FileName: r.FormValue("file_name"),
	}
	if up.Checksum == "" {
		return nil, errors.New("checksum is required")
	}
	if up.Kind == "" {
		return nil, errors.New("kind is required")
	}

	capturedAt, err := time.Parse(time.RFC3339, r.FormValue("captured_at"))
	if err != nil {
		return nil, errors.New("captured_at must be RFC3339")
	}
	up.CapturedAt = capturedAt

	if v := r.FormValue("duration_ms"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.New("duration_ms must be an integer")
		}
		up.DurationMS = ms
	}
	up.Favorite = r.FormValue("favorite") == "true"
	up.Archived = r.FormValue("archived") == "true"

	return up, nil
}
