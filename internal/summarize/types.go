package summarize

// Fields is the structured summary extracted from one transcript. Every
// field is optional; the external model only returns keys it has clear
// information for. Downstream code must not guess at shape beyond this
// struct.
type Fields struct {
	MeetingTitle  string   `json:"meeting_title,omitempty"`
	Date          string   `json:"date,omitempty"`
	ProjectClient string   `json:"project_client,omitempty"`
	Attendees     []string `json:"attendees,omitempty"`
	MainTopics    []string `json:"main_topics,omitempty"`
	KeyContext    []string `json:"key_context,omitempty"`
	ImpliedWork   []string `json:"implied_work,omitempty"`
}

// IsEmpty reports whether no field carries data. An empty Fields is the
// uniform "no data" signal for blank transcripts and unparseable model
// output alike.
func (f Fields) IsEmpty() bool {
	return f.MeetingTitle == "" &&
		f.Date == "" &&
		f.ProjectClient == "" &&
		len(f.Attendees) == 0 &&
		len(f.MainTopics) == 0 &&
		len(f.KeyContext) == 0 &&
		len(f.ImpliedWork) == 0
}
