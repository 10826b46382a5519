package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/offtimeapp/offtime/internal/auth"
	"github.com/offtimeapp/offtime/internal/store"
)

const (
	minPasswordLength = 8
	maxImageBytes     = 5 << 20
)

type UserHandler struct {
	users      *store.UserStore
	jwtManager *auth.JWTManager
	uploadDir  string
	logger     *slog.Logger
}

func NewUserHandler(users *store.UserStore, jwtManager *auth.JWTManager, uploadDir string, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:      users,
		jwtManager: jwtManager,
		uploadDir:  uploadDir,
		logger:     logger,
	}
}

func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.users.Create(req.Username, string(hash))
	if errors.Is(err, store.ErrDuplicate) {
		writeError(w, http.StatusBadRequest, "username already taken")
		return
	}
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.logger.Info("user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, "signup successful", newUserView(*user))
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.users.GetByUsername(strings.TrimSpace(req.Username))
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := h.jwtManager.Generate(user)
	if err != nil {
		h.logger.Error("generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, "login successful", map[string]any{
		"access_token": token,
		"user":         newUserView(*user),
	})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, "current user", newUserView(*user))
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			writeError(w, http.StatusBadRequest, "username cannot be empty")
			return
		}
		exists, err := h.users.UsernameExists(username, userID)
		if err != nil {
			h.logger.Error("check username", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		if exists {
			writeError(w, http.StatusBadRequest, "username already taken")
			return
		}
		if _, err := h.users.UpdateUsername(userID, username); err != nil {
			h.logger.Error("update username", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
	}

	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		if err := h.users.UpdatePassword(userID, string(hash)); err != nil {
			h.logger.Error("update password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
	}

	user, err := h.users.GetByID(userID)
	if err != nil || user == nil {
		h.logger.Error("get user after update", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, "user updated", newUserView(*user))
}

func (h *UserHandler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	// Sniff the real content type instead of trusting the header.
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	contentType := http.DetectContentType(buf[:n])

	var ext string
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	default:
		writeError(w, http.StatusBadRequest, "image must be a JPEG, PNG, or WebP file")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.logger.Error("create upload dir", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	filename := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(h.uploadDir, filename))
	if err != nil {
		h.logger.Error("create image file", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save image")
		return
	}
	defer dst.Close()

	if _, err := dst.Write(buf[:n]); err != nil {
		h.logger.Error("write image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save image")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error("write image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	user, err := h.users.UpdateProfileImage(userID, filename)
	if err != nil {
		h.logger.Error("update profile image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	h.logger.Info("profile image uploaded", "user_id", userID, "size", header.Size)
	writeJSON(w, http.StatusOK, "profile image uploaded", newUserView(*user))
}
