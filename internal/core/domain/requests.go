package domain

// TailorRequest asks the gateway to tailor resume text to a job description.
type TailorRequest struct {
	ResumeText     string `json:"resume_text"`
	JobDescription string `json:"job_description"`
	TemplateType   string `json:"template_type"`
}

type QuestionRequest struct {
	ResumeText     string        `json:"resume_text"`
	JobDescription string        `json:"job_description"`
	InterviewType  InterviewType `json:"interview_type"`
	Count          int           `json:"count"`
}

type EvaluationRequest struct {
	InterviewType    InterviewType `json:"interview_type"`
	Question         string        `json:"question"`
	Answer           string        `json:"answer"`
	ExpectedKeywords []string      `json:"expected_keywords"`
	ModelAnswer      string        `json:"model_answer"`
}

// TailorCommand is an on-demand tailoring request from a user.
type TailorCommand struct {
	OwnerID        string
	ResumeID       string
	JobDescription string
	JobURL         string
	TemplateType   string
}

type CreateInterviewCommand struct {
	OwnerID        string
	ResumeID       string
	Type           InterviewType
	JobDescription string
	QuestionCount  int
}

type SubmitResponseCommand struct {
	OwnerID   string
	SessionID string
	Index     int
	Response  RawResponse
	NonVerbal *NonVerbalInput
}
