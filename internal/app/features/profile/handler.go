// Package profile implements self-service account management: viewing
// and editing the profile, changing the password, and uploading a
// profile image.
package profile

import (
	"context"
	"net/http"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	userstore "github.com/taskforge/taskforge/internal/app/store/users"
	"github.com/taskforge/taskforge/internal/app/system/apperrors"
	gate "github.com/taskforge/taskforge/internal/app/system/auth"
	"github.com/taskforge/taskforge/internal/app/system/render"
	"github.com/taskforge/taskforge/internal/app/system/timeouts"
	"github.com/taskforge/taskforge/internal/app/system/uploads"
)

// Handler holds the profile feature's dependencies.
type Handler struct {
	Users   *userstore.Store
	Uploads *uploads.Saver
	Log     *zap.Logger

	// ImageBaseURL is the absolute prefix for stored image paths
	// (base URL + static mount), used to hand clients a fetchable URL.
	ImageBaseURL string
}

// sanitizer strips all HTML from free-text profile fields.
var sanitizer = bluemonday.StrictPolicy()

const maxSkills = 20

// Get handles GET /profile: the authenticated user's own record.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)
	render.JSON(w, http.StatusOK, user)
}

// Update handles PUT /profile. All fields are optional; absent fields
// are left untouched.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	var req struct {
		FullName *string   `json:"full_name"`
		Bio      *string   `json:"bio"`
		Skills   *[]string `json:"skills"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	upd := userstore.ProfileUpdate{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			render.Error(w, h.Log, apperrors.Validation("full name cannot be empty"))
			return
		}
		upd.FullName = &name
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(sanitizer.Sanitize(*req.Bio))
		if len(bio) > 1000 {
			render.Error(w, h.Log, apperrors.Validation("bio must be at most 1000 characters"))
			return
		}
		upd.Bio = &bio
	}
	if req.Skills != nil {
		if len(*req.Skills) > maxSkills {
			render.Error(w, h.Log, apperrors.Validation("at most 20 skills"))
			return
		}
		skills := make([]string, 0, len(*req.Skills))
		for _, sk := range *req.Skills {
			sk = strings.TrimSpace(sanitizer.Sanitize(sk))
			if sk != "" {
				skills = append(skills, sk)
			}
		}
		upd.Skills = &skills
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, user.ID, upd); err != nil {
		if err == userstore.ErrNotFound {
			render.Error(w, h.Log, apperrors.NotFound("user not found"))
			return
		}
		render.Error(w, h.Log, apperrors.Storage("could not update profile", err))
		return
	}

	updated, err := h.Users.GetByID(ctx, user.ID)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not reload profile", err))
		return
	}
	render.Success(w, http.StatusOK, "profile updated", updated)
}

// Password handles PUT /profile/password. The current password must be
// supplied and verified before the new one is stored.
func (h *Handler) Password(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := render.DecodeBody(r, &req); err != nil {
		render.Error(w, h.Log, err)
		return
	}
	if len(req.NewPassword) < 8 {
		render.Error(w, h.Log, apperrors.Validation("new password must be at least 8 characters"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		render.Error(w, h.Log, apperrors.Authentication("current password is incorrect"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not hash password", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		render.Error(w, h.Log, apperrors.Storage("could not update password", err))
		return
	}

	h.Log.Info("password changed", zap.String("user_id", user.ID.Hex()))
	render.Success(w, http.StatusOK, "password updated", nil)
}

// Image handles POST /profile/image: a single multipart image upload
// under the "image" field. A previous image, if any, is removed after
// the new path is recorded.
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	user, _ := gate.CurrentUser(r)

	r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxImageSize+(1<<20))
	if err := r.ParseMultipartForm(uploads.MaxImageSize); err != nil {
		render.Error(w, h.Log, apperrors.Validation("invalid multipart upload"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["image"]
	if len(files) != 1 {
		render.Error(w, h.Log, apperrors.Validation("exactly one image file is required"))
		return
	}
	fh := files[0]
	if err := uploads.ValidateImage(fh); err != nil {
		render.Error(w, h.Log, err)
		return
	}

	sv, err := h.Uploads.Save(fh, "profiles")
	if err != nil {
		render.Error(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	if err := h.Users.UpdateImagePath(ctx, user.ID, sv.Path); err != nil {
		if rmErr := h.Uploads.Remove(sv.Path); rmErr != nil {
			h.Log.Warn("failed to remove image after store error",
				zap.String("path", sv.Path), zap.Error(rmErr))
		}
		render.Error(w, h.Log, apperrors.Storage("could not save image path", err))
		return
	}

	if old := user.ImagePath; old != "" && old != sv.Path {
		if err := h.Uploads.Remove(old); err != nil {
			h.Log.Warn("failed to remove previous profile image",
				zap.String("path", old), zap.Error(err))
		}
	}

	render.Success(w, http.StatusOK, "profile image updated", map[string]string{
		"image_path": sv.Path,
		"image_url":  h.ImageBaseURL + "/" + sv.Path,
	})
}
