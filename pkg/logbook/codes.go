package logbook

import "strings"

const (
	DefaultActivityCode      = "3"
	DefaultParticipationCode = "2"
)

var activityCodes = map[ActivityKind]string{
	KindMentoring: "1",
	KindExam:      "2",
	KindActivity:  "3",
}

var participationCodes = map[ParticipationMode]string{
	ModeHybrid:  "1",
	ModeOffline: "2",
	ModeOnline:  "3",
}

// Portal labels seen in the activity-type dropdown and on entry forms.
var kindAliases = map[string]ActivityKind{
	"mentoring":             KindMentoring,
	"bimbingan":             KindMentoring,
	"exam":                  KindExam,
	"ujian":                 KindExam,
	"activity":              KindActivity,
	"kegiatan":              KindActivity,
	"berita acara kegiatan": KindActivity,
}

var modeAliases = map[string]ParticipationMode{
	"hybrid":  ModeHybrid,
	"offline": ModeOffline,
	"luring":  ModeOffline,
	"online":  ModeOnline,
	"daring":  ModeOnline,
}

// ParseActivityKind never fails; unknown labels fall back to KindActivity.
func ParseActivityKind(s string) ActivityKind {
	if k, ok := kindAliases[normalize(s)]; ok {
		return k
	}
	return KindActivity
}

func ParseParticipationMode(s string) ParticipationMode {
	if m, ok := modeAliases[normalize(s)]; ok {
		return m
	}
	return ModeOffline
}

func ActivityCode(s string) string {
	if code, ok := activityCodes[ParseActivityKind(s)]; ok {
		return code
	}
	return DefaultActivityCode
}

func ParticipationCode(s string) string {
	if code, ok := participationCodes[ParseParticipationMode(s)]; ok {
		return code
	}
	return DefaultParticipationCode
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
