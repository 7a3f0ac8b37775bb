package handlers

import (
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"brightquest/internal/service"
)

// LessonHandler handles lesson play and submission for a logged-in child
type LessonHandler struct {
	progressService *service.ProgressService
	templates       *template.Template
}

// NewLessonHandler creates a new lesson handler
func NewLessonHandler(progressService *service.ProgressService, templates *template.Template) *LessonHandler {
	return &LessonHandler{
		progressService: progressService,
		templates:       templates,
	}
}

// ShowLesson renders the lesson play page
func (h *LessonHandler) ShowLesson(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())
	if child == nil {
		http.Redirect(w, r, "/play/login", http.StatusSeeOther)
		return
	}

	lessonID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid lesson ID", http.StatusBadRequest)
		return
	}

	lessons, err := h.progressService.GetLessonsForChild(child)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error getting lessons", err)
		return
	}

	for i := range lessons {
		if lessons[i].ID == lessonID {
			data := LessonViewData{
				Title:  lessons[i].Title + " - BrightQuest",
				Child:  child,
				Lesson: &lessons[i],
			}
			h.render(w, "lesson.tmpl", data)
			return
		}
	}

	http.Error(w, "Lesson not found", http.StatusNotFound)
}

// CompleteLesson records a finished lesson. The form carries one
// "answer.N" value per question, in order, each either "correct" or
// "wrong".
func (h *LessonHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())
	if child == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	lessonID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid lesson ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	var answers []bool
	for i := 0; ; i++ {
		raw := r.FormValue("answer." + strconv.Itoa(i))
		if raw == "" {
			break
		}
		answers = append(answers, raw == "correct")
	}

	result, err := h.progressService.CompleteLesson(child, lessonID, answers)
	if err != nil {
		if errors.Is(err, service.ErrLessonNotFound) {
			http.Error(w, "Lesson not found", http.StatusNotFound)
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error completing lesson", err)
		return
	}

	data := LessonResultViewData{
		Title:  "Lesson Complete - BrightQuest",
		Child:  child,
		Result: result,
	}
	h.render(w, "lesson_result.tmpl", data)
}

// SubmitWeeklyTest records a weekly assessment score
func (h *LessonHandler) SubmitWeeklyTest(w http.ResponseWriter, r *http.Request) {
	child := GetChildFromContext(r.Context())
	if child == nil {
		http.Error(w, ErrUnauthorized, http.StatusUnauthorized)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	subjectCode := r.FormValue("subject_code")
	score, err := strconv.Atoi(r.FormValue("score"))
	if err != nil {
		http.Error(w, "Invalid score", http.StatusBadRequest)
		return
	}

	if _, err := h.progressService.RecordWeeklyTest(child.ID, subjectCode, score); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "Error recording weekly test", err)
		return
	}

	http.Redirect(w, r, "/play/dashboard", http.StatusSeeOther)
}

func (h *LessonHandler) render(w http.ResponseWriter, name string, data interface{}) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering %s: %v", name, err)
		http.Error(w, ErrInternalServerError, http.StatusInternalServerError)
	}
}
