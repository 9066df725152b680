package services

import (
	"fmt"
	"strings"
)

// Prompt templates for the solve and summarize pipelines. The output later
// goes through CleanASCII and into a Helvetica PDF, so the assignment prompt
// pushes the model toward plain ASCII up front.

const assignmentPromptTemplate = `You are a careful, step-by-step problem solver and academic expert.
You are given the raw text of an assignment file. Extract distinct questions and SOLVE them clearly and comprehensively.

CRITICAL FORMATTING REQUIREMENTS:
- Use ONLY standard ASCII characters (32-126)
- NO emojis, Unicode symbols, or special characters
- Use simple text formatting:
  * Asterisks (*) for emphasis
  * Dashes (-) for bullets
  * Standard quotes (" and ')
  * Basic math symbols: +, -, *, /, =, <, >
- Replace complex symbols:
  * Use "x" instead of the multiplication sign
  * Use "/" instead of the division sign
  * Use "<=", ">=", "!=" instead of their single-glyph forms
- Use regular dashes (-) not em-dashes
- Use standard spacing and line breaks

CONTENT REQUIREMENTS:
- Show numbered solutions matching question order (1., 2., 3., etc.)
- Provide detailed explanations for each step
- Include formulas using ASCII characters only
- Include code snippets in plain text format when needed
- If text includes irrelevant parts, ignore them
- If a question lacks info, state assumptions clearly
- Format response in structured, academic manner
- Provide practical examples where applicable
- Keep all content in plain text format

EXAMPLE FORMATTING:
1. Problem: Calculate force using F = ma

   Solution:
   Given: mass = 10 kg, acceleration = 9.8 m/s^2

   Formula: F = m * a
   Calculation: F = 10 * 9.8 = 98 N

   Therefore, the force is 98 Newtons.

Assignment text:
%s

Provide complete, detailed solutions using ONLY ASCII characters.`

const notesSummaryPromptTemplate = `You are a concise academic summarizer. Summarize the following notes into a tight study note:
- Key bullet points
- Definitions/formulas (if any)
- 3-5 takeaway lines

Notes text:
%s`

const questionsPromptTemplate = `You are given a set of questions extracted from a file. Provide clear, correct solutions.
Use step-by-step reasoning and label answers.

Questions:
%s`

func BuildAssignmentPrompt(assignmentText string) string {
	return fmt.Sprintf(assignmentPromptTemplate, strings.TrimSpace(assignmentText))
}

func BuildNotesSummaryPrompt(notesText string) string {
	return fmt.Sprintf(notesSummaryPromptTemplate, strings.TrimSpace(notesText))
}

func BuildQuestionsPrompt(questions []string) string {
	return fmt.Sprintf(questionsPromptTemplate, JoinQuestions(questions))
}
