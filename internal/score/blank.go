package score

import (
	"strconv"
	"strings"
)

const (
	DefaultMeasureCount = 8
	DefaultTimeSig      = "4/4"
	DefaultKeySig       = "C"
	DefaultTitle        = "Untitled"
	DefaultComposer     = "Anonymous"
	DefaultInstrument   = "Piano"

	defaultPartID = "P1"
	composerType  = "composer"
)

// keyFifths maps major key names to their position on the circle of fifths.
var keyFifths = map[string]int{
	"C": 0, "G": 1, "D": 2, "A": 3, "E": 4, "B": 5, "F#": 6, "C#": 7,
	"F": -1, "Bb": -2, "Eb": -3, "Ab": -4, "Db": -5, "Gb": -6, "Cb": -7,
}

var fifthsKey = map[int]string{
	0: "C", 1: "G", 2: "D", 3: "A", 4: "E", 5: "B", 6: "F#", 7: "C#",
	-1: "F", -2: "Bb", -3: "Eb", -4: "Ab", -5: "Db", -6: "Gb", -7: "Cb",
}

// BlankOptions describes a freshly generated score.
type BlankOptions struct {
	MeasureCount int    `json:"measure_count"`
	TimeSig      string `json:"time_sig"`
	KeySig       string `json:"key_sig"`
	Title        string `json:"title"`
	Composer     string `json:"composer"`
	Instrument   string `json:"instrument"`
}

// DefaultBlankOptions returns the editor's initial settings.
func DefaultBlankOptions() BlankOptions {
	return BlankOptions{
		MeasureCount: DefaultMeasureCount,
		TimeSig:      DefaultTimeSig,
		KeySig:       DefaultKeySig,
		Title:        DefaultTitle,
		Composer:     DefaultComposer,
		Instrument:   DefaultInstrument,
	}
}

// WithDefaults fills zero fields from DefaultBlankOptions. A non-positive
// measure count yields an empty part.
func (o BlankOptions) WithDefaults() BlankOptions {
	d := DefaultBlankOptions()
	if o.TimeSig == "" {
		o.TimeSig = d.TimeSig
	}
	if o.KeySig == "" {
		o.KeySig = d.KeySig
	}
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.Composer == "" {
		o.Composer = d.Composer
	}
	if o.Instrument == "" {
		o.Instrument = d.Instrument
	}
	return o
}

// KeyFifthsFor returns the fifths of a major key name, 0 when unknown.
func KeyFifthsFor(key string) int {
	return keyFifths[strings.TrimSpace(key)]
}

// KeyName returns the major key name for a fifths value.
func KeyName(fifths int) string {
	if k, ok := fifthsKey[fifths]; ok {
		return k
	}
	return DefaultKeySig
}

// ParseTimeSig splits "beats/beatType"; malformed input yields 4/4.
func ParseTimeSig(sig string) (beats, beatType string) {
	parts := strings.Split(strings.TrimSpace(sig), "/")
	if len(parts) != 2 {
		return strconv.Itoa(defaultBeats), strconv.Itoa(defaultBeatType)
	}
	b, errB := strconv.Atoi(strings.TrimSpace(parts[0]))
	t, errT := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errB != nil || errT != nil || b <= 0 || t <= 0 {
		return strconv.Itoa(defaultBeats), strconv.Itoa(defaultBeatType)
	}
	return strconv.Itoa(b), strconv.Itoa(t)
}

// Blank builds an empty single-part score with measures numbered 1..N and
// the global attributes on measure 1 only.
func Blank(opts BlankOptions) *Document {
	opts = opts.WithDefaults()
	beats, beatType := ParseTimeSig(opts.TimeSig)

	part := &Part{ID: defaultPartID}
	for i := 1; i <= opts.MeasureCount; i++ {
		m := &Measure{Number: strconv.Itoa(i)}
		if i == 1 {
			m.Attributes = &Attributes{
				Divisions: defaultDivisions,
				Key:       &Key{Fifths: KeyFifthsFor(opts.KeySig)},
				Time:      &Time{Beats: beats, BeatType: beatType},
				Clef:      &Clef{Sign: "G", Line: 2},
			}
		}
		part.Measures = append(part.Measures, m)
	}

	return &Document{
		Version: defaultVersion,
		Work:    &Work{Title: opts.Title},
		Identification: &Identification{
			Creators: []Creator{{Type: composerType, Name: opts.Composer}},
		},
		PartList: PartList{
			ScoreParts: []ScorePart{{ID: defaultPartID, Name: opts.Instrument}},
		},
		Parts: []*Part{part},
	}
}
