package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/SheetSQL/internal/dataset"
	"github.com/JonMunkholm/SheetSQL/internal/llm"
	"github.com/JonMunkholm/SheetSQL/internal/observability"
	"github.com/JonMunkholm/SheetSQL/internal/schema"
	"go.uber.org/zap"
)

const (
	msgMissingInstruction = "Please enter instructions for the SQL generation."
	msgNoFile             = "No selected file"
	msgFileType           = "File type not allowed. Upload a .csv, .xls or .xlsx file."
	msgTooLarge           = "Uploaded file is too large."
	msgBadForm            = "Invalid form submission."
	msgProcessing         = "Error processing file: "
	msgGenerateFailed     = "Failed to generate SQL code."
)

type indexPage struct {
	Messages []string
	Accept   string
}

type resultPage struct {
	SQL      string
	Filename string
}

func (a *app) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, _ := a.sessions.Get(r, sessionName)

	var messages []string
	if flashes := sess.Flashes(); len(flashes) > 0 {
		for _, f := range flashes {
			if s, ok := f.(string); ok {
				messages = append(messages, s)
			}
		}
		if err := sess.Save(r, w); err != nil {
			a.logger.Warn("clear flashes", zap.Error(err))
		}
	}

	a.render(w, "index.html", indexPage{Messages: messages, Accept: acceptList()})
}

func (a *app) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.redirectWithFlash(w, r, msgTooLarge)
			return
		}
		a.logger.Info("bad submission", zap.Error(err))
		a.redirectWithFlash(w, r, msgBadForm)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	instruction := r.FormValue("text_input")
	if strings.TrimSpace(instruction) == "" {
		a.redirectWithFlash(w, r, msgMissingInstruction)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		a.redirectWithFlash(w, r, msgNoFile)
		return
	}
	defer file.Close()

	format, err := dataset.FormatOf(header.Filename)
	if err != nil {
		a.redirectWithFlash(w, r, msgFileType)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		a.processingFailed(w, r, header.Filename, err)
		return
	}

	path, err := a.uploads.Save(header.Filename, data)
	if err != nil {
		a.processingFailed(w, r, header.Filename, err)
		return
	}
	observability.ObserveUpload(string(format))

	ds, err := dataset.ParserFor(format).Parse(data)
	if err != nil {
		a.processingFailed(w, r, header.Filename, err)
		return
	}
	sample, err := ds.FirstRecord()
	if err != nil {
		a.processingFailed(w, r, header.Filename, err)
		return
	}

	cols := schema.Infer(ds)
	a.logger.Info("dataset parsed",
		zap.String("stored_path", path),
		zap.String("format", string(format)),
		zap.Int("columns", len(cols)),
		zap.Int("rows", ds.Len()),
	)

	req := llm.BuildRequest(cols, sample, instruction)
	switch res := a.generator.Generate(r.Context(), req).(type) {
	case llm.Success:
		a.render(w, "result.html", resultPage{SQL: res.Text, Filename: header.Filename})
	case llm.Failure:
		a.redirectWithFlash(w, r, msgGenerateFailed)
	default:
		a.logger.Error("unexpected generation result", zap.String("type", fmt.Sprintf("%T", res)))
		a.redirectWithFlash(w, r, msgGenerateFailed)
	}
}

// handleExport returns a generated script as a .sql download.
func (a *app) handleExport(w http.ResponseWriter, r *http.Request) {
	script := llm.StripCodeFence(r.FormValue("sql"))
	if script == "" {
		http.Error(w, "sql is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/sql; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=generated.sql")
	_, _ = io.WriteString(w, script+"\n")
}

func (a *app) processingFailed(w http.ResponseWriter, r *http.Request, filename string, err error) {
	a.logger.Warn("process upload",
		zap.String("filename", filename),
		zap.Error(err),
	)
	a.redirectWithFlash(w, r, msgProcessing+err.Error())
}

func (a *app) redirectWithFlash(w http.ResponseWriter, r *http.Request, msg string) {
	sess, _ := a.sessions.Get(r, sessionName)
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		a.logger.Error("save session", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *app) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := a.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func acceptList() string {
	exts := make([]string, len(dataset.Formats))
	for i, f := range dataset.Formats {
		exts[i] = "." + string(f)
	}
	return strings.Join(exts, ",")
}
