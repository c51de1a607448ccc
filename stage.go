package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/rickar/cal/v2"
)

// ---------------------------------------------------------------------------
// Stages
// ---------------------------------------------------------------------------

// Stage is one step of the linear intake workflow.
type Stage int

const (
	StageSelectRegionSchool Stage = iota + 1
	StageConsent
	StageFillForm
	StagePreviewAndSubmit
)

func (s Stage) String() string {
	switch s {
	case StageSelectRegionSchool:
		return "select_region_school"
	case StageConsent:
		return "consent"
	case StageFillForm:
		return "fill_form"
	case StagePreviewAndSubmit:
		return "preview_and_submit"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Messages shown to the user on stage transitions.
const (
	msgSelectBoth        = "지역과 학교를 모두 선택하세요."
	msgConsentBoth       = "'동의합니다.'와 '동의하지 않습니다.' 중 하나만 선택하세요."
	msgConsentDeclined   = "개인정보 수집·이용에 동의 시에만 다음 단계로 진행할 수 있습니다."
	msgSignBoth          = "학생과 법정대리인 모두 올바르게 서명하세요."
	msgSignUnreadable    = "서명 이미지를 읽을 수 없습니다. 서명을 지우고 다시 서명하세요."
	msgSubmitted         = "정상적으로 제출되었습니다. 협조해 주셔서 감사합니다."
	msgRestart           = "오류가 발생했습니다. 다시 처음부터 진행해주세요."
	msgRenderFailed      = "PDF 생성 중 오류가 발생했습니다. 다시 시도해주세요."
	msgDirectoryBroken   = "학교 정보 파일을 읽을 수 없습니다. 관리자에게 문의해주세요."
	msgNoRecipientFormat = "학교 '%s'에 해당하는 이메일이 없습니다."
)

// ---------------------------------------------------------------------------
// Workflow
// ---------------------------------------------------------------------------

// Workflow gates the pipeline behind the four stages. It holds only
// read-only collaborators; all mutable state lives on the Session.
type Workflow struct {
	directory DirectorySource
	validator *Validator
	renderer  *Renderer
	consent   Layout
	transfer  Layout
	pages     map[string]image.Image // layout name -> template page
	dpi       float64
	calendar  *cal.BusinessCalendar
	mailer    documentMailer
	now       func() time.Time
	logger    *slog.Logger
}

// documentMailer is satisfied by *Mailer.
type documentMailer interface {
	SendDocument(doc *RenderedDocument, to string) error
}

// requireStage fails with ErrStageOrder unless s is at want.
func requireStage(s *Session, want Stage) error {
	if s.Stage != want {
		return fmt.Errorf("%w: at %s, need %s", ErrStageOrder, s.Stage, want)
	}
	return nil
}

// Directory loads a fresh copy of the school directory. Failures are logged.
func (wf *Workflow) Directory(s *Session) (*SchoolDirectory, error) {
	d, err := wf.directory.Load()
	if err != nil {
		wf.logger.Error("school directory unavailable", "session", s.ID, "error", err)
		return nil, err
	}
	return d, nil
}

// SelectRegionSchool advances to Consent once both a region and one of its
// schools are chosen.
func (wf *Workflow) SelectRegionSchool(s *Session, region, school string) error {
	if err := requireStage(s, StageSelectRegionSchool); err != nil {
		return err
	}
	if region == "" || school == "" {
		return &ValidationError{Field: "school", Reason: msgSelectBoth}
	}

	d, err := wf.Directory(s)
	if err != nil {
		return err
	}
	if !d.HasSchool(region, school) {
		return &ValidationError{Field: "school", Reason: msgSelectBoth}
	}

	s.Region, s.School = region, school
	s.Stage = StageConsent
	return nil
}

// AnswerConsent records the agreement checkboxes. Checking both resets the
// answer; declining is a dead end. Only a lone agreement advances.
func (wf *Workflow) AnswerConsent(s *Session, agree, disagree bool) error {
	if err := requireStage(s, StageConsent); err != nil {
		return err
	}

	switch {
	case agree && disagree:
		s.Consent = ConsentUnanswered
		s.Message = msgConsentBoth
	case disagree:
		s.Consent = ConsentDeclined
		s.Message = msgConsentDeclined
	case agree:
		s.Consent = ConsentAgreed
		s.Stage = StageFillForm
	default:
		s.Consent = ConsentUnanswered
	}
	return nil
}

// FillForm validates the input and both signatures, renders both template
// pages and stores the assembled document on the session.
func (wf *Workflow) FillForm(s *Session, in FormInput, studentCapture, parentCapture image.Image) error {
	if err := requireStage(s, StageFillForm); err != nil {
		return err
	}
	s.Form = in

	d, err := wf.validator.Validate(in)
	if err != nil {
		return err
	}
	d.Region, d.School = s.Region, s.School

	student, err := processSignature(studentCapture)
	if err != nil {
		return fmt.Errorf("student signature: %w", err)
	}
	parent, err := processSignature(parentCapture)
	if err != nil {
		return fmt.Errorf("parent signature: %w", err)
	}

	doc, err := wf.render(d, student, parent)
	if err != nil {
		wf.logger.Error("document rendering failed", "session", s.ID, "school", s.School, "error", err)
		return err
	}

	s.Document = doc
	s.Stage = StagePreviewAndSubmit
	wf.logger.Info("document rendered", "session", s.ID, "school", s.School,
		"reference", doc.Reference, "bytes", len(doc.PDF))
	return nil
}

// render draws both pages and assembles them, consent first.
func (wf *Workflow) render(d FormData, student, parent *Signature) (*RenderedDocument, error) {
	now := wf.now()
	text := textValues(d, now)
	images := signatureValues(student, parent)

	rendered := make([]image.Image, 0, 2)
	for _, l := range []Layout{wf.consent, wf.transfer} {
		page, err := wf.renderer.Render(wf.pages[l.Name], l.Placements, text, images, fontSize)
		if err != nil {
			return nil, err
		}
		rendered = append(rendered, page)
	}

	doc, err := newRenderedDocument(rendered[0], rendered[1], wf.dpi, d)
	if err != nil {
		return nil, err
	}
	if doc.Reference, err = referenceNumber(rand.Reader, now); err != nil {
		return nil, err
	}
	if wf.calendar != nil {
		doc.Notice = moveDateNotice(wf.calendar, d.MoveDate)
	}
	return doc, nil
}

// Download returns the stored document. It may be called any number of times.
func (wf *Workflow) Download(s *Session) (*RenderedDocument, error) {
	if err := requireStage(s, StagePreviewAndSubmit); err != nil {
		return nil, err
	}
	if s.Document == nil {
		return nil, fmt.Errorf("%w: no document", ErrStageOrder)
	}
	return s.Document, nil
}

// Submit resolves the school's mailbox from a fresh directory and sends the
// document. The session restarts at the first stage whatever the outcome.
func (wf *Workflow) Submit(ctx context.Context, s *Session) error {
	doc, err := wf.Download(s)
	if err != nil {
		return err
	}
	school := s.School
	defer s.reset()

	if err := ctx.Err(); err != nil {
		return err
	}

	d, err := wf.Directory(s)
	if err != nil {
		s.Message = msgRestart
		return err
	}
	to, ok := d.Email(school)
	if !ok || to == "" {
		err := &ConfigurationError{Resource: "directory", Err: fmt.Errorf("no email for school %q", school)}
		wf.logger.Error("recipient not found", "session", s.ID, "school", school, "error", err)
		s.Message = fmt.Sprintf(msgNoRecipientFormat, school) + " " + msgRestart
		return err
	}

	if err := wf.mailer.SendDocument(doc, to); err != nil {
		wf.logger.Error("email dispatch failed", "session", s.ID, "school", school,
			"reference", doc.Reference, "error", err)
		s.Message = msgRestart
		return err
	}

	wf.logger.Info("document submitted", "session", s.ID, "school", school, "reference", doc.Reference)
	s.Message = msgSubmitted
	return nil
}

// userMessage converts a workflow error into the text shown on the page.
func userMessage(err error) string {
	var verr *ValidationError
	var cerr *ConfigurationError
	var rerr *RenderError
	switch {
	case errors.As(err, &verr):
		return verr.Reason
	case errors.Is(err, ErrInsufficientInk):
		return msgSignBoth
	case errors.Is(err, ErrUnreadableSignature):
		return msgSignUnreadable
	case errors.As(err, &cerr):
		return msgDirectoryBroken
	case errors.As(err, &rerr):
		return msgRenderFailed
	default:
		return msgRestart
	}
}
