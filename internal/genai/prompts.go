package genai

import (
	"fmt"
	"strings"
)

const transcribePrompt = "Please transcribe this audio file accurately, maintaining the speaker's original words and structure."

func summaryPrompt(transcript string) string {
	return fmt.Sprintf(`As an expert academic assistant, analyze this lecture transcript and create a comprehensive summary.

Transcript: %q

Please provide:
1. A clear, well-structured summary (2-3 paragraphs)
2. Key points (5-7 bullet points)
3. Main concepts covered (3-5 concepts)
4. Estimated reading time in minutes

Format your response as JSON with the following structure:
{
  "summary": "detailed summary text",
  "keyPoints": ["point 1", "point 2", ...],
  "concepts": ["concept 1", "concept 2", ...],
  "estimatedReadingTime": number
}`, transcript)
}

func quizPrompt(transcript, difficulty string, questionCount int) string {
	return fmt.Sprintf(`Create a %s quiz with %d questions based on this lecture transcript.

Transcript: %q

Generate a mix of question types:
- 60%% multiple choice (4 options each)
- 25%% true/false
- 15%% open-ended

For each question, provide:
- Clear, specific question text
- Correct answer(s)
- Detailed explanation
- Topic/concept being tested

Format as JSON:
{
  "title": "Quiz title",
  "description": "Brief description",
  "questions": [
    {
      "id": "unique_id",
      "type": "multiple-choice|true-false|open-ended",
      "question": "Question text",
      "options": ["option1", "option2", "option3", "option4"] (for multiple choice only),
      "correctAnswer": "correct answer",
      "explanation": "Why this is correct",
      "difficulty": "%s",
      "topic": "concept being tested"
    }
  ],
  "estimatedTime": estimated_minutes
}`, difficulty, questionCount, transcript, difficulty)
}

func mindMapPrompt(transcript string) string {
	return fmt.Sprintf(`Create a comprehensive mind map structure from this lecture transcript.

Transcript: %q

Identify:
1. Central concept (main topic)
2. Major themes/categories (level 1)
3. Sub-concepts (level 2)
4. Specific details (level 3)

Create nodes with connections between related concepts.

Format as JSON:
{
  "title": "Mind Map Title",
  "centralConcept": "main topic",
  "nodes": [
    {
      "id": "unique_id",
      "text": "concept text",
      "type": "concept|category|detail",
      "level": 1-3,
      "color": "color_hex",
      "connections": ["connected_node_ids"]
    }
  ],
  "themes": ["theme1", "theme2", ...]
}`, transcript)
}

func chatPrompt(message string, chatCtx *ChatContext) string {
	var contextInfo string
	if chatCtx != nil {
		transcript := chatCtx.Transcript
		if transcript == "" {
			transcript = "Not available"
		}
		history := "None"
		if n := len(chatCtx.PreviousMessages); n > 0 {
			// Only the last five turns are inlined to keep the prompt bounded.
			start := n - 5
			if start < 0 {
				start = 0
			}
			var lines []string
			for _, m := range chatCtx.PreviousMessages[start:] {
				lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
			}
			history = strings.Join(lines, "\n")
		}
		contextInfo = fmt.Sprintf(`Context:
- Lesson transcript: %s
- Previous conversation: %s
`, transcript, history)
	}
	return fmt.Sprintf(`You are StudyAI, an intelligent tutoring assistant. Respond to the student's question with:
1. A helpful, clear answer
2. 2-3 follow-up question suggestions
3. Confidence level (0-1)

%s

Student question: %q

Respond in a friendly, encouraging tone. If the question relates to the lesson content, reference specific parts. Always provide educational value.

Format as JSON:
{
  "message": "your response",
  "suggestions": ["suggestion 1", "suggestion 2", "suggestion 3"],
  "confidence": 0.0-1.0,
  "sources": ["source references if applicable"]
}`, contextInfo, message)
}

func insightsPrompt(a StudyAnalytics) string {
	scores := make([]string, len(a.QuizScores))
	for i, s := range a.QuizScores {
		scores[i] = fmt.Sprintf("%g", s)
	}
	weak := "None identified"
	if len(a.WeakAreas) > 0 {
		weak = strings.Join(a.WeakAreas, ", ")
	}
	return fmt.Sprintf(`Analyze this student's study data and provide personalized insights:

Study Data:
- Total study time: %d minutes
- Lessons completed: %d
- Quiz scores: %s
- Subjects studied: %s
- Weak areas: %s

Provide:
1. Key insights about study patterns
2. Specific recommendations for improvement
3. Identified strengths
4. Areas needing improvement

Format as JSON:
{
  "insights": ["insight 1", "insight 2", ...],
  "recommendations": ["recommendation 1", "recommendation 2", ...],
  "strengths": ["strength 1", "strength 2", ...],
  "improvements": ["improvement 1", "improvement 2", ...]
}`, a.StudyTime, a.LessonsCompleted, strings.Join(scores, ", "), strings.Join(a.SubjectsStudied, ", "), weak)
}
