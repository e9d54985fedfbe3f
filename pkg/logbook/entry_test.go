package logbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPortalDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-01-10", "10/01/2025"},
		{"2025-03-01", "01/03/2025"},
		{"10/01/2025", "10/01/2025"},
		{"2025-01", "2025-01"},
		{"", ""},
		{"2025-01-10-x", "2025-01-10-x"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPortalDate(tt.in))
			assert.Equal(t, tt.want, FormatPortalDate(tt.in), "deterministic")
		})
	}
}

func TestActivityCodeIsTotal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mentoring", "1"},
		{"bimbingan", "1"},
		{"Exam", "2"},
		{"UJIAN", "2"},
		{"Activity", "3"},
		{"Berita Acara Kegiatan", "3"},
		{"  berita   acara kegiatan ", "3"},
		{"something else", DefaultActivityCode},
		{"", DefaultActivityCode},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ActivityCode(tt.in))
		})
	}
}

func TestParticipationCode(t *testing.T) {
	assert.Equal(t, "1", ParticipationCode("Hybrid"))
	assert.Equal(t, "2", ParticipationCode("offline"))
	assert.Equal(t, "3", ParticipationCode("Daring"))
	assert.Equal(t, DefaultParticipationCode, ParticipationCode("carrier pigeon"))
}

func validEntry() Entry {
	return Entry{
		Date:        "2025-03-01",
		StartTime:   "08:30",
		EndTime:     "17:30",
		Location:    "Graha X",
		Description: "Reviewed network diagrams",
	}
}

func TestEntryValidate(t *testing.T) {
	evidence := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(evidence, []byte("jpeg"), 0644))

	tests := []struct {
		name    string
		mutate  func(*Entry)
		wantErr bool
		missing bool
	}{
		{"valid", func(e *Entry) {}, false, false},
		{"valid with evidence", func(e *Entry) { e.EvidenceFilePath = evidence }, false, false},
		{"missing date", func(e *Entry) { e.Date = "" }, true, true},
		{"missing location", func(e *Entry) { e.Location = "  " }, true, true},
		{"missing description", func(e *Entry) { e.Description = "" }, true, true},
		{"bad date", func(e *Entry) { e.Date = "01/03/2025" }, true, false},
		{"bad time", func(e *Entry) { e.StartTime = "8.30" }, true, false},
		{"end before start", func(e *Entry) { e.EndTime = "07:00" }, true, false},
		{"evidence missing", func(e *Entry) { e.EvidenceFilePath = evidence + ".gone" }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			err := e.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.missing, errors.Is(err, ErrMissingField))
		})
	}
}

func TestCredentialsNeverPrint(t *testing.T) {
	c := Credentials{Username: "2101", Password: "hunter2"}
	assert.NotContains(t, fmt.Sprintf("%v %+v %s", c, c, c), "2101")
	assert.True(t, c.Valid())
	assert.NotContains(t, c.String(), "hunter2")
	assert.False(t, Credentials{Username: "2101"}.Valid())
}
