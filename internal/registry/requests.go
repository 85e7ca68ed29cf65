// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package registry

import (
	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/validation"
)

// RegisterRequest is the body of a device registration.
type RegisterRequest struct {
	DeviceID string `json:"deviceId" validate:"required,deviceid"`
	Name     string `json:"name" validate:"required,max=128"`
	Location string `json:"location" validate:"max=256"`
}

// AssignRequest lists playlists to merge into a device's assignments.
type AssignRequest struct {
	PlaylistIDs []string `json:"playlistIds" validate:"required,min=1,dive,required"`
}

// PlaylistRequest creates or replaces a playlist.
type PlaylistRequest struct {
	Name        string                `json:"name" validate:"required,max=256"`
	Description string                `json:"description" validate:"max=2048"`
	StartTime   string                `json:"startTime" validate:"required,hhmm"`
	EndTime     string                `json:"endTime" validate:"required,hhmm"`
	Items       []PlaylistItemRequest `json:"items" validate:"required,min=1,dive"`
}

// PlaylistItemRequest is one entry of a PlaylistRequest. A nil Order places
// the item at its position in the list.
type PlaylistItemRequest struct {
	MediaID  string `json:"mediaId" validate:"required"`
	Duration int    `json:"duration" validate:"omitempty,min=1,max=86400"`
	Order    *int   `json:"order" validate:"omitempty,min=0"`
}

// validate runs struct validation and wraps failures in apperr.ErrValidation
// so callers can both errors.Is the kind and errors.As the field details.
func validate(req interface{}) error {
	if verr := validation.ValidateStruct(req); verr != nil {
		return apperr.Wrap(apperr.ErrValidation, verr, "invalid request")
	}
	return nil
}

// items converts the request items to playlist items.
func (r *PlaylistRequest) items() []models.PlaylistItem {
	out := make([]models.PlaylistItem, len(r.Items))
	for i, it := range r.Items {
		order := i
		if it.Order != nil {
			order = *it.Order
		}
		out[i] = models.PlaylistItem{MediaID: it.MediaID, Duration: it.Duration, Order: order}
	}
	return out
}

// mediaIDs returns the distinct media ids the request references.
func (r *PlaylistRequest) mediaIDs() []string {
	seen := make(map[string]struct{}, len(r.Items))
	ids := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		if _, ok := seen[it.MediaID]; ok {
			continue
		}
		seen[it.MediaID] = struct{}{}
		ids = append(ids, it.MediaID)
	}
	return ids
}
