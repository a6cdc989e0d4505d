package handlers

import "time"

const (
	defaultSuggestTimeout = 60 * time.Second
	maxImportBytes        = 10 << 20 // 10 MiB
	defaultScorePageSize  = 20

	musicXMLContentType = "application/vnd.recordare.musicxml+xml"
	midiContentType     = "audio/midi"
	midiFileName        = "score.mid"
)
