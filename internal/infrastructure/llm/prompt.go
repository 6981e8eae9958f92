package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Phani130825/ask-a-coach/internal/core/domain"
)

const maxResumeSnippet = 6000

func snippet(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > maxResumeSnippet {
		return string(r[:maxResumeSnippet])
	}
	return text
}

func buildTailorPrompt(req domain.TailorRequest) string {
	template := strings.TrimSpace(req.TemplateType)
	if template == "" {
		template = "modern"
	}
	return fmt.Sprintf(`You are a resume writer. Tailor the resume below to the job description.
Return a strict JSON object with keys:
summary (string), experience (array of strings), skills (array of strings), keywords (array of strings),
match_score (number from 0 to 100), suggestions (array of strings), optimized_text (string).
Use the %q template style. No markdown, no extra keys.

Job description:
%s

Resume:
%s
`, template, strings.TrimSpace(req.JobDescription), snippet(req.ResumeText))
}

func buildQuestionsPrompt(req domain.QuestionRequest) string {
	return fmt.Sprintf(`You are an interviewer preparing a %s interview.
Write exactly %d questions grounded in the candidate resume and the job description.
Return a strict JSON object {"questions": [...]} where each item has keys:
question (string), category (string), difficulty ("easy", "medium" or "hard"),
expected_keywords (array of strings), model_answer (string).
No markdown, no extra keys.

Job description:
%s

Resume:
%s
`, req.InterviewType, req.Count, strings.TrimSpace(req.JobDescription), snippet(req.ResumeText))
}

func buildEvaluationPrompt(req domain.EvaluationRequest) string {
	keywords := strings.Join(req.ExpectedKeywords, ", ")
	return fmt.Sprintf(`You evaluate answers in a %s interview. Score each field from 1 to 10.
Return a strict JSON object with keys:
content_score, keyword_match, clarity, relevance, overall_score (numbers from 1 to 10),
feedback (string), suggestions (array of strings), ai_feedback (string).
No markdown, no extra keys.

Question:
%s

Expected keywords: %s

Model answer:
%s

Candidate answer:
%s
`, req.InterviewType, req.Question, keywords, req.ModelAnswer, req.Answer)
}

func buildNonVerbalPrompt(input domain.NonVerbalInput) string {
	observed, _ := json.Marshal(input)
	return fmt.Sprintf(`You coach interview delivery. Observed signals on a 0-10 scale:
%s

Return a strict JSON object with keys:
eye_contact, posture, gestures, facial_expressions, confidence, overall_score (numbers from 1 to 10),
feedback (string). No markdown, no extra keys.
`, observed)
}
