// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"path"
	"strings"
	"time"
)

// MediaType tags how a media item is played.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaOther MediaType = "other"
)

// Media is an immutable uploaded asset.
type Media struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Type         MediaType `json:"type"`
	Size         int64     `json:"size"`
	URL          string    `json:"url"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// DefaultExtension is used when OriginalName carries no usable extension.
const DefaultExtension = "jpg"

// Extension returns the lowercased extension of OriginalName without the dot,
// or DefaultExtension when there is none.
func (m *Media) Extension() string {
	ext := strings.TrimPrefix(path.Ext(m.OriginalName), ".")
	ext = strings.ToLower(ext)
	if ext == "" || strings.ContainsAny(ext, `/\ `) {
		return DefaultExtension
	}
	return ext
}

// MediaTypeFromName classifies an upload by its file extension.
func MediaTypeFromName(name string) MediaType {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "jpg", "jpeg", "png", "gif", "webp", "bmp":
		return MediaImage
	case "mp4", "mov", "webm", "mkv", "m4v", "avi":
		return MediaVideo
	default:
		return MediaOther
	}
}
