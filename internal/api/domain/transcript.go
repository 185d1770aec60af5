package domain

import (
	"errors"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

const (
	LanguageEnglish = "en"
	LanguageMyanmar = "my"

	DefaultLanguage = LanguageEnglish
)

// Progress checkpoints written while a transcript job runs
const (
	ProgressQueued       = 0
	ProgressStarted      = 10
	ProgressTranscribing = 30
	ProgressTranscribed  = 90
	ProgressDone         = 100
)

// MaxFileSize is the largest accepted upload (50 MB)
const MaxFileSize int64 = 50 << 20

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
)

// ValidLanguage reports whether lang is a supported transcription language
func ValidLanguage(lang string) bool {
	return lang == LanguageEnglish || lang == LanguageMyanmar
}
