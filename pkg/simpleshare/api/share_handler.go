package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-share/pkg/simpleshare"
	"github.com/tendant/simple-share/pkg/simpleshare/assets"
)

// UploadResponse is the body of a successful upload.
type UploadResponse struct {
	URL string `json:"url"`
}

// maxFilenameField bounds the optional "filename" form field.
const maxFilenameField = 1024

// Upload stores the "pushfile" form value under a new id. The body may be
// multipart, where a file part supplies its own filename, or a plain form
// with an explicit "filename" field.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	var (
		res *simpleshare.UploadResult
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		res, err = s.uploadMultipart(r, kind)
	} else {
		res, err = s.uploadForm(r, kind)
	}
	if err != nil {
		s.jsonError(w, r, "upload", err)
		return
	}

	if key, ok := APIKeyFromContext(r.Context()); ok {
		s.logger.Info("Upload accepted", "id", res.ID, "kind", res.Kind, "api_key", key.Comment)
	}
	render.JSON(w, r, UploadResponse{URL: res.URL})
}

func (s *Server) uploadMultipart(r *http.Request, kind string) (*simpleshare.UploadResult, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadForm, err)
	}

	var (
		filename   string
		pending    []byte
		hasPending bool
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errBadForm, err)
		}

		switch part.FormName() {
		case "filename":
			data, err := io.ReadAll(io.LimitReader(part, maxFilenameField))
			if err != nil {
				part.Close()
				return nil, fmt.Errorf("%w: %w", errBadForm, err)
			}
			filename = string(data)

		case "pushfile":
			if part.FileName() != "" {
				defer part.Close()
				// An explicit filename field sent ahead of the file wins.
				name := part.FileName()
				if filename != "" {
					name = filename
				}
				return s.service.Upload(r.Context(), simpleshare.UploadRequest{
					Kind:     kind,
					Filename: name,
					Body:     part,
				})
			}
			pending, err = io.ReadAll(part)
			if err != nil {
				part.Close()
				return nil, fmt.Errorf("%w: %w", errBadForm, err)
			}
			hasPending = true
		}
		part.Close()
	}

	if !hasPending {
		return nil, errMissingPayload
	}
	return s.service.Upload(r.Context(), simpleshare.UploadRequest{
		Kind:     kind,
		Filename: filename,
		Body:     bytes.NewReader(pending),
	})
}

func (s *Server) uploadForm(r *http.Request, kind string) (*simpleshare.UploadResult, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadForm, err)
	}
	if !r.PostForm.Has("pushfile") {
		return nil, errMissingPayload
	}
	return s.service.Upload(r.Context(), simpleshare.UploadRequest{
		Kind:     kind,
		Filename: r.PostForm.Get("filename"),
		Body:     bytes.NewReader([]byte(r.PostForm.Get("pushfile"))),
	})
}

// Serve answers every other GET: embedded assets first, then shared items.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if _, ok := assets.Lookup(name); ok {
		s.assetHandler.ServeHTTP(w, r)
		return
	}

	id, err := url.PathUnescape(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	res, err := s.service.Resolve(r.Context(), id)
	if err != nil {
		status := resolveStatusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("Failed to resolve item", "id", id, "status", status, "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	defer res.Close()

	switch res.Kind {
	case simpleshare.KindFile:
		s.serveFile(w, r, res)
	case simpleshare.KindURL:
		redirect(w, res.RedirectURL)
	case simpleshare.KindText:
		var username string
		if sess, err := s.currentSession(r); err == nil && sess != nil {
			username = sess.Username
		}
		s.renderPage(w, r, "text", assets.TextPage{
			Page:        assets.Page{Title: res.DisplayName, Username: username},
			ID:          res.ID,
			DisplayName: res.DisplayName,
			Text:        res.Text,
			PublicURL:   res.PublicURL,
		})
	}
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, res *simpleshare.Resolved) {
	obj := res.Blob

	contentType := obj.Meta.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(path.Ext(res.DisplayName)); byExt != "" {
			contentType = byExt
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := mime.FormatMediaType("inline", map[string]string{"filename": res.DisplayName})
	if disposition == "" {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if seeker, ok := obj.Body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, res.DisplayName, obj.Meta.UpdatedAt, seeker)
		return
	}

	if obj.Meta.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(obj.Meta.Size))
	}
	if _, err := io.Copy(w, obj.Body); err != nil {
		s.logger.Warn("Failed to stream file", "id", res.ID, "error", err)
	}
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := assets.Lookup(chi.URLParam(r, "*"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(asset.Data)
}
