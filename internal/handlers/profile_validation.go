package handlers

import (
	"strings"

	"github.com/sujal-surani/NeuroNxt/internal/models"
)

const maxBioLength = 500

var allowedVisibilities = map[string]struct{}{
	models.VisibilityInstitute:  {},
	models.VisibilityClassmates: {},
}

func validateProfileUpdateRequest(req updateProfileRequest) string {
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return "full_name must not be empty"
	}
	if req.Branch != nil && strings.TrimSpace(*req.Branch) == "" {
		return "branch must not be empty"
	}
	if req.Semester != nil && strings.TrimSpace(*req.Semester) == "" {
		return "semester must not be empty"
	}
	if req.Bio != nil && len(*req.Bio) > maxBioLength {
		return "bio must be 500 characters or fewer"
	}
	if req.Visibility != nil {
		if _, ok := allowedVisibilities[strings.TrimSpace(*req.Visibility)]; !ok {
			return "visibility must be one of: institute, classmates"
		}
	}
	return ""
}
