package main

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Document Text Helpers
// ---------------------------------------------------------------------------

const (
	formTypeLabel           = "전입예정확인서"
	attachmentBaseName      = "Confirmation.of.Scheduled.Residence.Transfer"
	attachmentFallbackName  = attachmentBaseName + ".pdf"
	koreanDateLayout        = "2006년 01월 02일"
	filenameReplacementRune = '_'
	referenceAlphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceSuffixLen      = 4
)

var gradeNumberRegex = regexp.MustCompile(`\d+`)

// referenceNumber builds TR-YYYY-MM-XXXX from the submission month and four
// symbols read from random.
func referenceNumber(random io.Reader, t time.Time) (string, error) {
	var suffix [referenceSuffixLen]byte
	if _, err := io.ReadFull(random, suffix[:]); err != nil {
		return "", fmt.Errorf("failed to generate reference number: %w", err)
	}
	for i, v := range suffix {
		suffix[i] = referenceAlphabet[int(v)%len(referenceAlphabet)]
	}
	return t.Format("TR-2006-01-") + string(suffix[:]), nil
}

// formatKoreanDate formats a date as YYYY년 MM월 DD일.
func formatKoreanDate(t time.Time) string {
	return t.Format(koreanDateLayout)
}

// gradeToEnglish converts a grade label such as "3학년" to "3gr".
// Labels without digits are returned unchanged.
func gradeToEnglish(grade string) string {
	if n := gradeNumberRegex.FindString(grade); n != "" {
		return n + "gr"
	}
	return grade
}

// sanitizeFilenamePart replaces characters that are not allowed in file names
// on common filesystems. Spaces and non-ASCII text are kept.
func sanitizeFilenamePart(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return filenameReplacementRune
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return filenameReplacementRune
		}
		return r
	}, s)
}

// documentFilename builds the download name {form}_{school}_{grade}.pdf.
func documentFilename(schoolName, nextGrade string) string {
	return fmt.Sprintf("%s_%s_%s.pdf", formTypeLabel, sanitizeFilenamePart(schoolName), sanitizeFilenamePart(nextGrade))
}

// attachmentFilename derives the ASCII file name used for the email
// attachment from the download name.
func attachmentFilename(filename string) string {
	parts := strings.Split(filename, "_")
	if len(parts) < 3 {
		return attachmentFallbackName
	}
	grade := strings.TrimSuffix(parts[len(parts)-1], ".pdf")
	return fmt.Sprintf("%s_%s.pdf", attachmentBaseName, gradeToEnglish(grade))
}

// ---------------------------------------------------------------------------
// Email Content Builders
// ---------------------------------------------------------------------------

// buildSubject creates the email subject line.
func buildSubject(filename string) string {
	return fmt.Sprintf("%s(%s)", formTypeLabel, filename)
}

// buildEmailBody creates the plain text body sent to the school.
func buildEmailBody(filename, reference string) string {
	var b strings.Builder

	b.WriteString("안녕하세요.\n\n")
	b.WriteString(fmt.Sprintf("%s가 제출되었습니다.\n", filename))
	b.WriteString("첨부된 PDF 파일을 저장 후 이상이 없는지 확인하여 주세요.\n")
	b.WriteString("편리한 관리를 위해 파일명 변경을 권장드립니다.\n\n")
	b.WriteString(fmt.Sprintf("접수번호: %s\n\n", reference))
	b.WriteString("감사합니다.")

	return b.String()
}
