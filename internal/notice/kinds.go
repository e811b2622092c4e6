package notice

import (
	"errors"
	"fmt"
)

// Kind identifies one administrative notification type.
type Kind string

const (
	CourseRegistration   Kind = "course_registration"
	EventNotice          Kind = "event_notice"
	ScheduleRequest      Kind = "schedule_request"
	ScheduleAnnouncement Kind = "schedule_announcement"
	ScheduleChange       Kind = "schedule_change"
	StudentConsultation  Kind = "student_consultation"
	StudentReply         Kind = "student_reply"
	HolidayNotice        Kind = "holiday_notice"
	FreePrompt           Kind = "free_prompt"
)

const DefaultSender = "Student Service Center"

var ErrUnknownKind = errors.New("unknown notification kind")

// Field maps a request key onto a template marker.
type Field struct {
	Key     string   // request key, e.g. "startDate"
	Aliases []string // alternative request keys, e.g. "student_name"
	Marker  string   // placeholder name without braces, e.g. "time_start"

	// Default is substituted for the marker when the caller sent nothing.
	Default string
	// Fallback is not substituted; the model is instructed to use it
	// when the marker is still present.
	Fallback string
	Bold     bool
}

// Spec is everything the pipeline needs to produce one kind.
type Spec struct {
	Kind         Kind
	Title        string
	TemplatePath string
	Fields       []Field
	// Generated is false for kinds that are returned after substitution
	// without a model round trip.
	Generated bool
	Rules     []string
}

const noTimeOptions = "Derzeit liegen keine konkreten Zeitoptionen vor.\n\nCurrently, there are no specific time options available."

var specs = map[Kind]*Spec{
	CourseRegistration: {
		Kind:         CourseRegistration,
		Title:        "Course Registration",
		TemplatePath: "Student/course_registration.txt",
		Generated:    true,
		Fields: []Field{
			{Key: "startDate", Aliases: []string{"time_start"}, Marker: "time_start", Fallback: "today's date", Bold: true},
			{Key: "endDate", Aliases: []string{"time_end"}, Marker: "time_end", Fallback: "today's date", Bold: true},
			{Key: "targetAudience", Aliases: []string{"target_group"}, Marker: "target_group", Fallback: "everyone"},
			{Key: "name", Marker: "name", Fallback: DefaultSender},
			{Key: "additionalNote", Aliases: []string{"note"}, Marker: "note"},
		},
		Rules: []string{
			"If {note} is still present or empty, omit the **Hinweis:** and **Note:** lines entirely; otherwise place the note after **Hinweis:** in German and after **Note:** in English, whatever language it was written in.",
		},
	},
	EventNotice: {
		Kind:         EventNotice,
		Title:        "Event Notice",
		TemplatePath: "Student/event_notice.txt",
		Generated:    true,
		Fields: []Field{
			{Key: "courseName", Aliases: []string{"eventName", "event_name"}, Marker: "event_name", Bold: true},
			{Key: "additionalNote", Aliases: []string{"eventIntro", "event_intro"}, Marker: "event_intro"},
			{Key: "eventTime", Aliases: []string{"event_time"}, Marker: "event_time", Fallback: "to be announced (written out in full in each language)", Bold: true},
			{Key: "language", Marker: "language"},
			{Key: "location", Aliases: []string{"event_location"}, Marker: "event_location", Bold: true},
			{Key: "targetAudience", Aliases: []string{"target_group"}, Marker: "target_group", Fallback: "everyone"},
			{Key: "registration", Marker: "registration", Default: "Registration is not required."},
			{Key: "name", Marker: "name", Default: DefaultSender},
		},
	},
	ScheduleRequest: {
		Kind:         ScheduleRequest,
		Title:        "Schedule Request",
		TemplatePath: "Staff/schedule_request.txt",
		Generated:    true,
		Fields: []Field{
			{Key: "targetAudience", Aliases: []string{"target_group"}, Marker: "target_group"},
			{Key: "courseName", Aliases: []string{"course_name"}, Marker: "course_name", Bold: true},
			{Key: "courseCode", Aliases: []string{"course_code"}, Marker: "course_code", Bold: true},
			{Key: "semester", Marker: "semester"},
			{Key: "timeOptions", Aliases: []string{"time_options"}, Marker: "time_options", Default: noTimeOptions},
			{Key: "replyDeadline", Aliases: []string{"reply_deadline"}, Marker: "reply_deadline", Bold: true},
			{Key: "name", Marker: "name", Default: DefaultSender},
		},
		Rules: []string{
			"Every variable must be replaced by the supplied values and translated into German and English.",
			"A deadline phrased as \"until <date>\", \"bis <date>\" or any other way belongs in the reply deadline.",
		},
	},
	ScheduleAnnouncement: {
		Kind:         ScheduleAnnouncement,
		Title:        "Schedule Announcement",
		TemplatePath: "Student/schedule_announcement.txt",
		Generated:    true,
		Fields: []Field{
			{Key: "courseName", Aliases: []string{"course_name"}, Marker: "course_name", Bold: true},
			{Key: "courseCode", Aliases: []string{"course_code"}, Marker: "course_code", Bold: true},
			{Key: "instructorName", Aliases: []string{"instructor_name"}, Marker: "instructor_name"},
			{Key: "courseStartDate", Aliases: []string{"course_start_date"}, Marker: "course_start_date", Bold: true},
			{Key: "weeklyTime", Aliases: []string{"weekly_time"}, Marker: "weekly_time"},
			{Key: "weeklyLocation", Aliases: []string{"weekly_location"}, Marker: "weekly_location"},
			{Key: "targetAudience", Aliases: []string{"target_group"}, Marker: "target_group"},
			{Key: "name", Marker: "name", Default: DefaultSender},
		},
		Rules: []string{
			"Keep line breaks, list markers and spacing. Do not add HTML tags.",
		},
	},
	ScheduleChange: {
		Kind:         ScheduleChange,
		Title:        "Schedule Change",
		TemplatePath: "All/schedule_change.txt",
		Generated:    true,
		Fields: []Field{
			{Key: "courseName", Aliases: []string{"course_name"}, Marker: "course_name", Bold: true},
			{Key: "courseCode", Aliases: []string{"course_code"}, Marker: "course_code"},
			{Key: "reason", Marker: "reason"},
			{Key: "oldTime", Aliases: []string{"original_time"}, Marker: "original_time"},
			{Key: "oldLocation", Aliases: []string{"original_location"}, Marker: "original_location"},
			{Key: "newTime", Aliases: []string{"new_time"}, Marker: "new_time", Fallback: "no change", Bold: true},
			{Key: "newLocation", Aliases: []string{"new_location"}, Marker: "new_location", Fallback: "no change", Bold: true},
			{Key: "targetAudience", Aliases: []string{"target_group"}, Marker: "target_group"},
			{Key: "name", Marker: "name", Default: DefaultSender},
		},
		Rules: []string{
			"Keep the format exactly. Do not add explanations or HTML.",
		},
	},
	StudentConsultation: {
		Kind:         StudentConsultation,
		Title:        "Student Consultation",
		TemplatePath: "Student/consultation_info.txt",
		Generated:    true,
		Fields: []Field{
			{Key: "onSiteTime", Aliases: []string{"on_site_time"}, Marker: "on_site_time", Bold: true},
			{Key: "virtualTime", Aliases: []string{"virtual_time"}, Marker: "virtual_time", Bold: true},
			{Key: "meetingId", Aliases: []string{"meeting_id"}, Marker: "meeting_id"},
			{Key: "passcode", Marker: "passcode"},
			{Key: "emailAddress", Aliases: []string{"email_address"}, Marker: "email_address"},
			{Key: "name", Marker: "name", Default: DefaultSender},
		},
		Rules: []string{
			"Keep line breaks, list markers and spacing. Do not add HTML tags.",
		},
	},
	StudentReply: {
		Kind:         StudentReply,
		Title:        "Student Reply",
		TemplatePath: "Student/student_reply.txt",
		Fields: []Field{
			{Key: "studentName", Aliases: []string{"student_name"}, Marker: "student_name"},
			{Key: "name", Marker: "name", Default: DefaultSender},
		},
	},
	HolidayNotice: {
		Kind:         HolidayNotice,
		Title:        "Holiday Notice",
		TemplatePath: "All/holiday_notice.txt",
		Fields: []Field{
			{Key: "holidayName", Aliases: []string{"holiday_name"}, Marker: "holiday_name"},
			{Key: "holidayDate", Aliases: []string{"holiday_date"}, Marker: "holiday_date"},
			{Key: "name", Marker: "name", Default: DefaultSender},
		},
	},
}

// Lookup returns the configuration for kind.
func Lookup(kind Kind) (*Spec, error) {
	if kind == FreePrompt {
		return &Spec{Kind: FreePrompt, Title: "Free Prompt", Generated: true}, nil
	}
	s, ok := specs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
	}
	return s, nil
}

// TemplateKinds lists every kind backed by a template file, in a stable order.
func TemplateKinds() []Kind {
	return []Kind{
		CourseRegistration,
		EventNotice,
		ScheduleRequest,
		ScheduleAnnouncement,
		ScheduleChange,
		StudentConsultation,
		StudentReply,
		HolidayNotice,
	}
}

// Value returns the first non-empty value for f among its key and aliases.
func (f Field) Value(fields map[string]string) string {
	if v := fields[f.Key]; v != "" {
		return v
	}
	for _, a := range f.Aliases {
		if v := fields[a]; v != "" {
			return v
		}
	}
	return ""
}

func (f Field) Placeholder() string {
	return "{" + f.Marker + "}"
}
