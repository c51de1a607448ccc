package main

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"image"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// HTTP Front End
// ---------------------------------------------------------------------------

//go:embed templates/*.html
var templateFS embed.FS

const (
	maxFormBytes   = 8 << 20
	htmlDateLayout = "2006-01-02"
)

// parsePageTemplate parses the embedded page.
func parsePageTemplate() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type server struct {
	wf       *Workflow
	sessions *sessionStore
	page     *template.Template
	notices  map[string]template.HTML
	samples  map[string]string // sample name -> file path
	location *time.Location
	logger   *slog.Logger
}

// formValues are the stage 3 inputs as shown in the form.
type formValues struct {
	StudentName   string
	ParentName    string
	Relationship  string
	StudentSchool string
	StudentPhone  string
	ParentPhone   string
	BirthDate     string
	MoveDate      string
	SchoolName    string
	Address       string
	NextGrade     string
}

type pageData struct {
	Stage      string // Stage.String()
	StageNum   int
	Intro      template.HTML
	Notice     template.HTML
	Message    string
	Halted     bool
	Regions    []string
	Region     string
	Schools    []string
	School     string
	Consent    ConsentAnswer
	Form       formValues
	Document   *RenderedDocument
	PageNums   []int
	SignWidth  int
	SignHeight int
}

// routes registers every endpoint behind the logging and recovery wrappers.
func (sv *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", sv.withSession(sv.handleIndex))
	mux.HandleFunc("GET /schools", sv.withSession(sv.handleSchools))
	mux.HandleFunc("POST /stage/region", sv.withSession(sv.handleRegion))
	mux.HandleFunc("POST /stage/consent", sv.withSession(sv.handleConsent))
	mux.HandleFunc("POST /stage/form", sv.withSession(sv.handleForm))
	mux.HandleFunc("GET /document", sv.withSession(sv.handleDownload))
	mux.HandleFunc("GET /document/pages/{n}", sv.withSession(sv.handlePreview))
	mux.HandleFunc("POST /submit", sv.withSession(sv.handleSubmit))
	mux.HandleFunc("POST /reset", sv.withSession(sv.handleReset))
	mux.HandleFunc("GET /samples/{name}", sv.handleSample)

	return wrapHandler(mux, recoverWrapper(sv.logger), requestLogWrapper(sv.logger))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *Session)

// withSession resolves the visitor's session and serializes its requests.
func (sv *server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := sv.sessions.get(w, r)
		if err != nil {
			sv.logger.Error("session unavailable", "error", err)
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		h(w, r, s)
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (sv *server) handleIndex(w http.ResponseWriter, r *http.Request, s *Session) {
	data := pageData{
		Stage:      s.Stage.String(),
		StageNum:   int(s.Stage),
		Intro:      sv.notices["intro"],
		Notice:     sv.notices[s.Stage.String()],
		Message:    s.takeMessage(),
		Consent:    s.Consent,
		SignWidth:  signatureCaptureWidth,
		SignHeight: signatureCaptureHeight,
	}

	switch s.Stage {
	case StageSelectRegionSchool:
		d, err := sv.wf.Directory(s)
		if err != nil {
			data.Message = userMessage(err)
			data.Halted = true
			break
		}
		data.Regions = d.Regions()
		data.Region = r.URL.Query().Get("region")
		if data.Region == "" && len(data.Regions) > 0 {
			data.Region = data.Regions[0]
		}
		data.Schools = d.Schools(data.Region)
	case StageFillForm:
		data.Form = sv.formDefaults(s)
	case StagePreviewAndSubmit:
		data.Document = s.Document
		if s.Document != nil {
			for i := range s.Document.Previews {
				data.PageNums = append(data.PageNums, i+1)
			}
		}
	}

	var buf bytes.Buffer
	if err := sv.page.ExecuteTemplate(&buf, "page.html", data); err != nil {
		sv.logger.Error("page template failed", "stage", s.Stage.String(), "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// formDefaults pre-fills the form with the last input or the example values.
func (sv *server) formDefaults(s *Session) formValues {
	in := s.Form
	example := func(value, field string) string {
		if value != "" {
			return value
		}
		return exampleValues[field][0]
	}
	date := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(htmlDateLayout)
	}
	moveDate := in.MoveDate
	if moveDate.IsZero() {
		moveDate = sv.wf.now()
	}
	schoolName := in.SchoolName
	if schoolName == "" {
		schoolName = s.School
	}

	return formValues{
		StudentName:   example(in.StudentName, fieldStudentName),
		ParentName:    example(in.ParentName, fieldParentName),
		Relationship:  example(in.Relationship, fieldRelationship),
		StudentSchool: example(in.StudentSchool, fieldStudentSchool),
		StudentPhone:  example(in.StudentPhone, fieldStudentPhone),
		ParentPhone:   example(in.ParentPhone, fieldParentPhone),
		BirthDate:     date(in.BirthDate),
		MoveDate:      date(moveDate),
		SchoolName:    schoolName,
		Address:       example(in.Address, fieldAddress),
		NextGrade:     example(in.NextGrade, fieldNextGrade),
	}
}

func (sv *server) handleSchools(w http.ResponseWriter, r *http.Request, s *Session) {
	d, err := sv.wf.Directory(s)
	if err != nil {
		http.Error(w, userMessage(err), http.StatusServiceUnavailable)
		return
	}
	schools := d.Schools(r.URL.Query().Get("region"))
	if schools == nil {
		schools = []string{}
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(schools)
}

func (sv *server) handleRegion(w http.ResponseWriter, r *http.Request, s *Session) {
	if err := sv.wf.SelectRegionSchool(s, r.PostFormValue("region"), r.PostFormValue("school")); err != nil {
		s.Message = userMessage(err)
	}
	redirectHome(w, r)
}

func (sv *server) handleConsent(w http.ResponseWriter, r *http.Request, s *Session) {
	agree := r.PostFormValue("agree") != ""
	disagree := r.PostFormValue("disagree") != ""
	if err := sv.wf.AnswerConsent(s, agree, disagree); err != nil {
		s.Message = userMessage(err)
	}
	redirectHome(w, r)
}

func (sv *server) handleForm(w http.ResponseWriter, r *http.Request, s *Session) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.Message = msgRestart
		redirectHome(w, r)
		return
	}

	in := FormInput{
		StudentName:   r.FormValue("student_name"),
		ParentName:    r.FormValue("parent_name"),
		Relationship:  r.FormValue("relationship"),
		StudentSchool: r.FormValue("student_school"),
		StudentPhone:  r.FormValue("student_phone"),
		ParentPhone:   r.FormValue("parent_phone"),
		BirthDate:     sv.parseDate(r.FormValue("birth_date")),
		MoveDate:      sv.parseDate(r.FormValue("move_date")),
		SchoolName:    r.FormValue("school_name"),
		Address:       r.FormValue("address"),
		NextGrade:     r.FormValue("next_grade"),
	}
	student, serr := decodeDataURL(r.FormValue("student_sign"))
	parent, perr := decodeDataURL(r.FormValue("parent_sign"))
	if err := errors.Join(serr, perr); err != nil && s.Stage == StageFillForm {
		sv.logger.Warn("signature capture rejected", "session", s.ID, "error", err)
		s.Form = in
		s.Message = userMessage(err)
		redirectHome(w, r)
		return
	}

	if err := sv.wf.FillForm(s, in, student, parent); err != nil {
		s.Message = userMessage(err)
	}
	redirectHome(w, r)
}

// parseDate reads an <input type="date"> value; invalid input yields the zero time.
func (sv *server) parseDate(v string) time.Time {
	t, err := time.ParseInLocation(htmlDateLayout, strings.TrimSpace(v), sv.location)
	if err != nil {
		return time.Time{}
	}
	return t
}

// decodeDataURL decodes a "data:image/png;base64,..." canvas export. An empty
// value is an unsigned pad and yields a nil image.
func decodeDataURL(v string) (image.Image, error) {
	const prefix = "data:image/png;base64,"
	if v == "" {
		return nil, nil
	}
	if !strings.HasPrefix(v, prefix) {
		return nil, fmt.Errorf("%w: not a png data url", ErrUnreadableSignature)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, prefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableSignature, err)
	}
	return decodeCapture(raw)
}

func (sv *server) handleDownload(w http.ResponseWriter, r *http.Request, s *Session) {
	doc, err := sv.wf.Download(s)
	if err != nil {
		redirectHome(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
	w.Write(doc.PDF)
}

func (sv *server) handlePreview(w http.ResponseWriter, r *http.Request, s *Session) {
	doc, err := sv.wf.Download(s)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil || n < 1 || n > len(doc.Previews) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(doc.Previews[n-1])
}

func (sv *server) handleSubmit(w http.ResponseWriter, r *http.Request, s *Session) {
	if err := sv.wf.Submit(r.Context(), s); err != nil && errors.Is(err, ErrStageOrder) {
		s.Message = msgRestart
	}
	redirectHome(w, r)
}

func (sv *server) handleReset(w http.ResponseWriter, r *http.Request, s *Session) {
	s.reset()
	redirectHome(w, r)
}

func (sv *server) handleSample(w http.ResponseWriter, r *http.Request) {
	path, ok := sv.samples[r.PathValue("name")]
	if !ok || path == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}
