package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/nerdneilsfield/go-pdf-translator/internal/queue"
	"github.com/nerdneilsfield/go-pdf-translator/internal/render"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
)

const (
	storeInitialized = "initialized"
	storeUnavailable = "unavailable"

	defaultOutputName     = "translated_document"
	defaultTargetLanguage = "en"
)

// TranslateRequest POST /translate 请求体
type TranslateRequest struct {
	TaskID         string `json:"taskId"`
	UserID         string `json:"userId"`
	FileName       string `json:"fileName"`
	PDFContent     string `json:"pdfContent"`
	TargetLanguage string `json:"targetLanguage"`
}

func (r *TranslateRequest) complete() bool {
	return r.TaskID != "" && r.UserID != "" && r.FileName != "" && r.PDFContent != "" && r.TargetLanguage != ""
}

// Paragraphs 接受字符串或字符串数组，数组按空行拼接
type Paragraphs string

func (p *Paragraphs) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Paragraphs(s)
		return nil
	}

	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("translatedContent must be a string or an array of strings")
	}
	*p = Paragraphs(strings.Join(parts, "\n\n"))
	return nil
}

// GeneratePDFRequest POST /generate-pdf 请求体
type GeneratePDFRequest struct {
	TranslatedContent Paragraphs `json:"translatedContent"`
	OriginalFileName  string     `json:"originalFileName"`
	TargetLanguage    string     `json:"targetLanguage"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	storeStatus := storeInitialized
	if s.store == nil {
		storeStatus = storeUnavailable
	} else if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("task store ping failed", zap.Error(err))
		storeStatus = storeUnavailable
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":       "Backend is running!",
		"store_status": storeStatus,
	})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !req.complete() {
		writeError(w, http.StatusBadRequest, "Missing required parameters")
		return
	}
	if _, err := language.Parse(req.TargetLanguage); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid targetLanguage %q", req.TargetLanguage))
		return
	}

	job := queue.NewJob(s.appID, req.TaskID, req.UserID, req.FileName, req.PDFContent, req.TargetLanguage)
	ref := job.TaskRef()
	if err := ref.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// 前端通常已经创建了任务记录，这里只补建缺失的记录
	err := s.store.Create(r.Context(), ref, &store.Task{
		FileName:       req.FileName,
		TargetLanguage: req.TargetLanguage,
		Status:         store.StatusProcessing,
	})
	if err != nil && !errors.Is(err, store.ErrTaskExists) {
		s.logger.Error("failed to create task record", zap.String("task_id", req.TaskID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Task store unavailable")
		return
	}

	if err := s.queue.Enqueue(r.Context(), job); err != nil {
		s.logger.Error("failed to enqueue job", zap.String("task_id", req.TaskID), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Could not schedule translation")
		return
	}

	s.logger.Info("translation job enqueued",
		zap.String("task_id", req.TaskID),
		zap.String("user_id", req.UserID),
		zap.String("job_id", job.ID),
		zap.String("target", req.TargetLanguage))

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Translation process initiated",
		"taskId":  req.TaskID,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ref := store.TaskRef{AppID: s.appID, UserID: vars["userId"], TaskID: vars["taskId"]}

	task, err := s.store.Get(r.Context(), ref)
	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case err != nil:
		s.logger.Error("failed to read task", zap.String("task_id", ref.TaskID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Task store unavailable")
	default:
		writeJSON(w, http.StatusOK, task)
	}
}

func (s *Server) handleGeneratePDF(w http.ResponseWriter, r *http.Request) {
	var req GeneratePDFRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(string(req.TranslatedContent)) == "" {
		writeError(w, http.StatusBadRequest, "No translated content provided for PDF generation.")
		return
	}
	if req.OriginalFileName == "" {
		req.OriginalFileName = defaultOutputName
	}
	if req.TargetLanguage == "" {
		req.TargetLanguage = defaultTargetLanguage
	}

	var buf bytes.Buffer
	err := s.renderer.Render(&buf, render.Input{
		Content:          string(req.TranslatedContent),
		OriginalFileName: req.OriginalFileName,
		TargetLanguage:   req.TargetLanguage,
	})
	if err != nil {
		s.logger.Error("pdf generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Could not create PDF: "+err.Error())
		return
	}

	name := render.OutputFileName(req.OriginalFileName, req.TargetLanguage)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// decode 读取 JSON 请求体，失败时已写出错误响应
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
