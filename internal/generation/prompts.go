package generation

import "strings"

const (
	resumeSystemPrompt      = "You are an expert resume writer who produces honest, ATS-friendly resumes."
	coverLetterSystemPrompt = "You are an expert cover letter writer who writes concise, compelling business letters."
)

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

// buildResumePrompt creates the prompt for a tailored resume
func buildResumePrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("Based on the following information, create a tailored, professional resume that highlights the most relevant skills and experiences for this specific job.\n\n")

	sb.WriteString("## JOB DESCRIPTION\n")
	sb.WriteString(req.JobDescription)
	sb.WriteString("\n\n")

	sb.WriteString("## CURRENT RESUME\n")
	sb.WriteString(req.ResumeContent)
	sb.WriteString("\n\n")

	sb.WriteString("## ADDITIONAL INSTRUCTIONS\n")
	sb.WriteString(orNone(req.AdditionalInstructions))
	sb.WriteString("\n\n")

	sb.WriteString("Generate a professional, ATS-friendly resume that:\n")
	sb.WriteString("1. Highlights relevant skills and experiences matching the job requirements\n")
	sb.WriteString("2. Uses action verbs and quantifiable achievements\n")
	sb.WriteString("3. Is formatted with clear sections (Summary, Experience, Education, Skills)\n")
	sb.WriteString("4. Emphasizes keywords from the job description\n")
	sb.WriteString("5. Stays truthful to the current resume\n\n")
	sb.WriteString("Return only the resume text.\n")

	return sb.String()
}

// buildCoverLetterPrompt creates the prompt for a cover letter
func buildCoverLetterPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("Based on the following information, write a compelling, professional cover letter that shows enthusiasm for the position and explains why the candidate is a strong fit.\n\n")

	sb.WriteString("## JOB DESCRIPTION\n")
	sb.WriteString(req.JobDescription)
	sb.WriteString("\n\n")

	sb.WriteString("## CANDIDATE RESUME\n")
	sb.WriteString(req.ResumeContent)
	sb.WriteString("\n\n")

	sb.WriteString("## ADDITIONAL INSTRUCTIONS\n")
	sb.WriteString(orNone(req.AdditionalInstructions))
	sb.WriteString("\n\n")

	sb.WriteString("The cover letter must:\n")
	sb.WriteString("1. Open with a strong, engaging introduction\n")
	sb.WriteString("2. Explain why the candidate wants this specific role and company\n")
	sb.WriteString("3. Highlight 2-3 achievements or skills that match the job requirements\n")
	sb.WriteString("4. Close with a confident call to action\n")
	sb.WriteString("5. Be 3-4 paragraphs and fit on one page\n\n")
	sb.WriteString("Use a standard business letter structure and return only the letter text.\n")

	return sb.String()
}

// buildRecommendationsPrompt asks for resume improvements, truncating both inputs
func buildRecommendationsPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("Based on the job description and the candidate's current resume, provide 3-5 specific, actionable recommendations for improving the resume to better match this job opportunity.\n\n")

	sb.WriteString("## JOB DESCRIPTION\n")
	sb.WriteString(truncateRunes(req.JobDescription, recommendationInputLimit))
	sb.WriteString("\n\n")

	sb.WriteString("## CURRENT RESUME\n")
	sb.WriteString(truncateRunes(req.ResumeContent, recommendationInputLimit))
	sb.WriteString("\n\n")

	sb.WriteString("Provide clear, actionable recommendations in a concise format.\n")

	return sb.String()
}

// buildAnalysisPrompt asks for a JSON breakdown of a job description
func buildAnalysisPrompt(jobDescription string) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following job description.\n\n")
	sb.WriteString("## JOB DESCRIPTION\n")
	sb.WriteString(jobDescription)
	sb.WriteString("\n\n")

	sb.WriteString("Provide your analysis in the following JSON format:\n")
	sb.WriteString("{\n")
	sb.WriteString(`  "required_skills": ["<skill>", ...],` + "\n")
	sb.WriteString(`  "experience_level": "<e.g. junior, mid, senior, years required>",` + "\n")
	sb.WriteString(`  "education": ["<requirement>", ...],` + "\n")
	sb.WriteString(`  "responsibilities": ["<responsibility>", ...],` + "\n")
	sb.WriteString(`  "culture_notes": ["<company culture indicator>", ...]` + "\n")
	sb.WriteString("}\n\n")
	sb.WriteString("Return ONLY the JSON object, no additional text.\n")

	return sb.String()
}
