package requirement

import (
	"fmt"
	"strings"
)

const (
	MaxFiles    = 5
	MaxFileSize = 10 * 1024 * 1024
)

var allowedTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"application/pdf",
	"application/msword",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func allowedType(ct string) bool {
	for _, t := range allowedTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// File is one selected attachment, held in memory until the post is created.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Data        []byte `json:"-"`
}

func checkFile(f File) string {
	if !allowedType(f.ContentType) {
		return fmt.Sprintf("File type not allowed: %s. Allowed types: JPG, PNG, PDF, DOC, DOCX, XLS, XLSX", f.Name)
	}
	if f.Size > MaxFileSize {
		return fmt.Sprintf("File too large: %s. Maximum size is 10MB", f.Name)
	}
	return ""
}

// Attachments is the pending file list of one requirement.
type Attachments struct {
	files []File
}

// Add validates a selection batch. Valid files are appended; every
// rejection is collected into one message joined with ". ".
func (a *Attachments) Add(batch []File) string {
	var errs []string
	var accepted []File
	for _, f := range batch {
		if len(a.files)+len(accepted) >= MaxFiles {
			errs = append(errs, fmt.Sprintf("Maximum %d files allowed", MaxFiles))
			break
		}
		if a.has(f) {
			errs = append(errs, fmt.Sprintf("File already added: %s", f.Name))
			continue
		}
		if msg := checkFile(f); msg != "" {
			errs = append(errs, msg)
			continue
		}
		accepted = append(accepted, f)
	}
	a.files = append(a.files, accepted...)
	return strings.Join(errs, ". ")
}

// Capture adds a single camera shot.
func (a *Attachments) Capture(f File) string {
	if len(a.files) >= MaxFiles {
		return fmt.Sprintf("Maximum %d files allowed", MaxFiles)
	}
	if msg := checkFile(f); msg != "" {
		return msg
	}
	a.files = append(a.files, f)
	return ""
}

func (a *Attachments) Remove(i int) bool {
	if i < 0 || i >= len(a.files) {
		return false
	}
	a.files = append(a.files[:i:i], a.files[i+1:]...)
	return true
}

func (a *Attachments) Files() []File {
	return append([]File(nil), a.files...)
}

func (a *Attachments) Len() int {
	return len(a.files)
}

func (a *Attachments) Reset() {
	a.files = nil
}

func (a *Attachments) has(f File) bool {
	for _, x := range a.files {
		if x.Name == f.Name && x.Size == f.Size {
			return true
		}
	}
	return false
}
