package models

const (
	PageBreakFormat      = "<<PAGE_BREAK>> Page %d\n%s\n\n"
	PageErrorPlaceholder = "[Error loading page content]"
	BulletDelimiter      = "•"
	LineBreak            = "<br/>"
	ParagraphBreak       = "<br/><br/>"
	NoResponseText       = "No response received"

	// citation patterns
	CitationRegex        = `\[(\d+)\]`
	GroupedCitationRegex = `\[\d+(?:\s*,\s*\d+)+\]`
	RangedCitationRegex  = `\[\d+(?:\s*-\s*\d+)+\]`
	CitationPeriodRegex  = `(\d+\])\.`
	CitationRunRegex     = `(?:\[\d+\])+`
	BulletSplitRegex     = `•\s*`

	// history question extraction
	QuestionLabelRegex = `(?s)(?:Human Question|Question): (.+?)\n\nDocument Content:`
	ElisionMarker      = "... [document content excluded from history]"

	PreviousAssistantPrefix = "Previous assistant response: "
)

var (
	ChunkInstructionTemplate = ` This is chunk %d of %d. Extract keywords from this section only.`

	TruncationNotice = "\n\nNOTE: This document was too long, so only the first section is being processed."

	ConsolidationPromptTemplate = `You are a keyword consolidation specialist. From the following keyword lists extracted from different sections of a document, create a final bulleted list of the %d most important and representative keywords. CONSISTENCY RULES: 1) Remove exact duplicates and near-duplicates 2) Use canonical/standard forms of terms 3) Rank by frequency and importance across all sections 4) Maintain the same format: "• Keyword [page#]" 5) Be deterministic - always select the same keywords for the same input.`

	ConsolidationMessageTemplate = "Consolidate these keyword lists into the top %d keywords:\n\n%s"

	ConsolidationSeparator = "\n\n---\n\n"

	QuestionMessageTemplate        = "Question: %s\n\nDocument Content:\n%s"
	HistoryQuestionMessageTemplate = "Human Question: %s\n\nDocument Content:\n%s"
)
