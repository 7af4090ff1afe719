package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"dicomslicer/internal/archive"
	"dicomslicer/internal/pipeline"
)

// indexData feeds the upload page.
type indexData struct {
	Message string
}

// resultData feeds the two-stage result page: first the slice-count form,
// then the rendered gallery.
type resultData struct {
	Stage            string // choose_n or show_results
	Message          string
	UploadedFilename string
	Batch            string
	Total            int
	Images           []galleryImage
}

type galleryImage struct {
	Name  string
	Thumb string // empty when thumbnails are disabled
}

// Index serves the upload form.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, "")
}

// Process drives the two-stage flow. A request carrying a dicom_file part
// stages the upload and asks for the slice selection; a request carrying
// uploaded_filename runs the pipeline and renders the gallery.
func (s *Server) Process(w http.ResponseWriter, r *http.Request) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.renderIndex(w, "Upload failed. The file may exceed the size limit.")
		return
	}

	if file, header, err := r.FormFile("dicom_file"); err == nil {
		defer func() { _ = file.Close() }()
		s.stageUpload(w, r, file, header.Filename, header.Size)
		return
	}

	s.runPipeline(w, r)
}

// stageUpload validates and stores the raw dataset, then asks the user how
// many slices to extract.
func (s *Server) stageUpload(w http.ResponseWriter, r *http.Request, file io.Reader, filename string, size int64) {
	filename = filepath.Base(filename)
	if filename == "" || filename == "." {
		s.renderIndex(w, "No file selected.")
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".dcm") {
		s.renderIndex(w, "Please upload a DICOM file with a .dcm extension.")
		return
	}

	// Staged uploads get a unique name so concurrent users never collide.
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	stored := fmt.Sprintf("%s_%d_%s.dcm", base, time.Now().Unix(), uuid.NewString()[:8])

	if err := s.store.SaveUpload(r.Context(), stored, file, size); err != nil {
		s.log.Error("stage upload", "name", stored, "err", err)
		s.renderIndex(w, "Could not store the uploaded file. Please try again.")
		return
	}
	s.log.Info("upload staged", "name", stored, "bytes", size)

	s.render(w, "result.html", resultData{
		Stage:            "choose_n",
		UploadedFilename: stored,
	})
}

// runPipeline extracts the requested slices from a staged upload and renders
// the gallery.
func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request) {
	uploaded := r.FormValue("uploaded_filename")
	if uploaded == "" {
		s.renderIndex(w, "Please upload a file first.")
		return
	}

	sel, err := pipeline.ParseSelection(r.FormValue("action"), r.FormValue("n"))
	if err != nil {
		s.renderChooseN(w, uploaded, "Please enter a positive whole number of slices.")
		return
	}

	rc, size, err := s.store.OpenUpload(r.Context(), uploaded)
	if err != nil {
		s.renderIndex(w, "The uploaded file is no longer available. Please upload it again.")
		return
	}
	out, err := s.pipe.Run(rc, size, sel)
	_ = rc.Close()
	if err != nil {
		s.pipelineError(w, r, uploaded, err)
		return
	}

	batch := strings.TrimSuffix(uploaded, ".dcm") + "_slices"

	// Reset the batch namespace so re-running a selection never mixes old
	// and new slices.
	if err := s.store.RemoveBatch(r.Context(), batch); err != nil {
		s.log.Warn("reset batch", "batch", batch, "err", err)
	}
	for _, img := range out.Images {
		if err := s.store.Put(r.Context(), batch, img.Filename, bytes.NewReader(img.PNG), int64(len(img.PNG))); err != nil {
			s.log.Error("store slice", "batch", batch, "file", img.Filename, "err", err)
			s.renderIndex(w, "Could not store the rendered slices. Please try again.")
			return
		}
		if img.Thumb != nil {
			name := "thumb_" + img.Filename
			if err := s.store.Put(r.Context(), batch, name, bytes.NewReader(img.Thumb), int64(len(img.Thumb))); err != nil {
				s.log.Warn("store thumbnail", "batch", batch, "file", name, "err", err)
			}
		}
	}
	s.log.Info("batch rendered", "batch", batch, "slices", len(out.Images), "frames", out.Total)

	data := resultData{
		Stage:            "show_results",
		UploadedFilename: uploaded,
		Batch:            batch,
		Total:            out.Total,
	}
	for _, img := range out.Images {
		gi := galleryImage{Name: img.Filename}
		if img.Thumb != nil {
			gi.Thumb = "thumb_" + img.Filename
		}
		data.Images = append(data.Images, gi)
	}
	s.render(w, "result.html", data)
}

// pipelineError maps typed pipeline failures onto the right page and
// message.
func (s *Server) pipelineError(w http.ResponseWriter, r *http.Request, uploaded string, err error) {
	var invalidInput *pipeline.InvalidInputError
	var invalidParam *pipeline.InvalidParameterError
	var emptySel *pipeline.EmptySelectionError

	switch {
	case errors.As(err, &invalidInput):
		// The staged file can never be sliced, so discard it.
		if rmErr := s.store.RemoveUpload(r.Context(), uploaded); rmErr != nil {
			s.log.Warn("remove bad upload", "name", uploaded, "err", rmErr)
		}
		s.log.Info("undecodable upload", "name", uploaded, "err", err)
		s.renderIndex(w, "The file could not be read as DICOM pixel data. Please upload a different file.")
	case errors.As(err, &invalidParam):
		s.renderChooseN(w, uploaded, "Please enter a positive whole number of slices.")
	case errors.As(err, &emptySel):
		s.renderChooseN(w, uploaded, "That selection produced no slices. Try a smaller step.")
	default:
		s.log.Error("pipeline run", "name", uploaded, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// ServeImage streams one stored slice or thumbnail.
func (s *Server) ServeImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	batch, file := vars["batch"], vars["file"]
	if batch != path.Base(batch) || file != path.Base(file) {
		http.NotFound(w, r)
		return
	}

	rc, err := s.store.Open(r.Context(), batch, file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = rc.Close() }()

	w.Header().Set("Content-Type", "image/png")
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Warn("serve image", "batch", batch, "file", file, "err", err)
	}
}

// Download zips the whole batch named in ?batch= and removes it afterwards.
func (s *Server) Download(w http.ResponseWriter, r *http.Request) {
	s.sendArchive(w, r, r.URL.Query().Get("batch"), nil)
}

// DownloadSelected zips only the slices ticked in the gallery form, then
// removes the batch like a full download does.
func (s *Server) DownloadSelected(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	selected := r.Form["selected"]
	if len(selected) == 0 {
		http.Error(w, "no slices selected", http.StatusBadRequest)
		return
	}
	s.sendArchive(w, r, r.FormValue("batch"), selected)
}

// sendArchive buffers the zip so a mid-archive failure can still yield an
// error status, then deletes the batch and sweeps stale storage.
func (s *Server) sendArchive(w http.ResponseWriter, r *http.Request, batch string, only []string) {
	if batch == "" || batch != path.Base(batch) {
		http.Error(w, "missing batch", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	err := archive.WriteZip(r.Context(), &buf, s.store, batch, only)
	if errors.Is(err, archive.ErrEmptyBatch) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Error("build archive", "batch", batch, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", batch+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := io.Copy(w, &buf); err != nil {
		s.log.Warn("send archive", "batch", batch, "err", err)
	}

	// The download is the end of the batch's life.
	if err := s.store.RemoveBatch(r.Context(), batch); err != nil {
		s.log.Warn("remove batch", "batch", batch, "err", err)
	}
	if s.retention > 0 {
		if _, err := s.store.Sweep(r.Context(), s.retention); err != nil {
			s.log.Warn("sweep", "err", err)
		}
	}
}

func (s *Server) renderIndex(w http.ResponseWriter, message string) {
	s.render(w, "index.html", indexData{Message: message})
}

func (s *Server) renderChooseN(w http.ResponseWriter, uploaded, message string) {
	s.render(w, "result.html", resultData{
		Stage:            "choose_n",
		Message:          message,
		UploadedFilename: uploaded,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render template", "template", name, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
