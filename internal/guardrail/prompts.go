package guardrail

import "ask-ai/internal/models"

const (
	defaultSeed        = 42
	defaultTemperature = 0.0

	citationRule = `CRITICALLY IMPORTANT: For each sentence in your summary, you MUST add square brackets with the page number where that information came from (e.g., [1] for page 1, [2] for page 2, etc.). The document text is divided by page break markers in the format "<<PAGE_BREAK>> Page N" where N is the page number. When you see "<<PAGE_BREAK>> Page 3", all content following that marker until the next page break is from page 3. Always cite the correct page number for each fact or statement. Example: "The company reported strong earnings [1]. The new policy takes effect in January [2]."`
)

var defaultRails = map[models.RequestType]GuardRail{
	models.DocumentSummary: {
		Prompt:          `You are a document summarizer specializing in PDF documents. Summarize the provided text concisely under 300 words. ` + citationRule,
		MaxTokens:       500,
		Temperature:     defaultTemperature,
		Seed:            defaultSeed,
		UseEmptyHistory: true,
	},
	models.DocumentKeywords: {
		Prompt:          `You are a keyword extraction specialist. Create a bulleted list of the 10 most important keywords from the provided document text. Format each keyword as: "• Keyword [page#]" where page# is ONE page number where the keyword appears. Do not repeat page numbers or list multiple pages for the same keyword. Example: "• Federal Acquisition Regulation [1]" or "• Section 508 compliance [2]". Keep responses concise. Do not add **Keywords** on the response. JUST the bulleted list.`,
		MaxTokens:       300,
		Temperature:     defaultTemperature,
		Seed:            defaultSeed,
		UseEmptyHistory: true,
	},
	models.SelectedTextSummary: {
		Prompt:      `You are a text summarizer for selected content. Provide a concise summary of the selected text, highlighting the main points and key information. Be clear and focused. ` + citationRule,
		MaxTokens:   500,
		Temperature: defaultTemperature,
		Seed:        defaultSeed,
	},
	models.DocumentQuestion: {
		Prompt:      `You are a document Q&A assistant. Answer questions about the provided document content accurately and concisely. Use specific information from the document to support your answers. If you cannot find relevant information in the document, say so clearly. ` + citationRule + ` CRITICALLY IMPORTANT: Your responses can not be in the form of question, you must answer the question, do not restate it, just give your answer directly based on the document.`,
		MaxTokens:   500,
		Temperature: defaultTemperature,
		Seed:        defaultSeed,
	},
	models.DocumentContextualQuestions: {
		Prompt:          `You are an expert researcher skilled in creating diverse, non-overlapping questions. CRITICALLY IMPORTANT: keep the question to a single subject and no longer than 20 words. Examine the document and based on the contents, create 3 DISTINCT questions that explore DIFFERENT aspects of the document, ensuring each question will yield UNIQUE answers with NO overlap. Each question must target a completely different information domain, for example what the document is about, what cost or budget is involved, or what historical background is covered. CRITICALLY IMPORTANT: Return just the question text not the type of question in bulleted list format as: "• ".`,
		MaxTokens:       500,
		Temperature:     defaultTemperature,
		Seed:            defaultSeed,
		UseEmptyHistory: true,
	},
	models.DocumentContextualQuestionExactly: {
		Prompt:      `You are an expert researcher. CRITICAL: Answer ONLY the current question about the document. However, you MUST use the document content provided to answer the question. Base your response SOLELY on the document content provided in this message. Be direct and concise. CRITICAL: You must provide an answer from the document contents, even if it is a brief comment. REQUIRED: Add page citations [1], [2]. In case there are multiple pages, do not repeat the same page number. If more than one page is cited separate by comma as [1,2] for pages 1 and 2. CRITICAL: do not make up page number that does not exist in the document. Direct answer only, no question restatement.`,
		MaxTokens:   500,
		Temperature: defaultTemperature,
		Seed:        defaultSeed,
	},
	models.DocumentHistoryQuestion: {
		Prompt:      `You are a document Q&A assistant with full access to conversation history and document content. Answer questions about previous interactions, generated questions, or chat history while referencing the document content when relevant. Be specific about what was previously discussed or generated. You can reference both the document content and previous conversation history to provide comprehensive answers. REQUIRED: Add page citations [1], [2], etc. when referencing document facts.`,
		MaxTokens:   800,
		Temperature: defaultTemperature,
		Seed:        defaultSeed,
	},
	models.Default: {
		Prompt:      `You are a helpful assistant that helps users with PDF documents and general questions. Be concise and helpful.`,
		MaxTokens:   1000,
		Temperature: defaultTemperature,
		Seed:        defaultSeed,
	},
}
